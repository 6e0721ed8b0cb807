package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/wallet"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// dashboardView is the data rendered by dashboard.html.
type dashboardView struct {
	Panel        panel.Snapshot
	Wallet       *model.WalletSession
	Address      string
	ShortAddress string
	Notice       *model.Notification
	Buttons      []opButton
}

// opButton is one operation button.
type opButton struct {
	Op       model.Operation
	Label    string
	Variant  string
	Wide     bool
	Disabled bool
}

// buttons lays out the operation buttons. A button is disabled without a
// wallet and while its own operation is in flight.
func buttons(snap panel.Snapshot, connected bool) []opButton {
	out := []opButton{
		{Op: model.OpIncrement, Label: "Increment", Variant: "default"},
		{Op: model.OpDecrement, Label: "Decrement", Variant: "outline"},
		{Op: model.OpReset, Label: "Reset", Variant: "destructive"},
		{Op: model.OpCreate, Label: "Create New Counter", Variant: "secondary", Wide: true},
	}
	for i := range out {
		busy := snap.InFlight == out[i].Op
		out[i].Disabled = !connected || busy
		if busy && out[i].Op == model.OpCreate {
			out[i].Label = "Creating New Counter..."
		}
	}
	return out
}

func (s *CounterServer) renderDashboard(w http.ResponseWriter, r *http.Request, p *panel.Panel) {
	snap := p.Snapshot()
	sess := s.session(requestSessionID(r))
	view := dashboardView{
		Panel:   snap,
		Wallet:  sess,
		Buttons: buttons(snap, sess.Connected()),
	}
	if sess != nil {
		view.Address = sess.Address
		view.ShortAddress = model.ShortAddress(sess.Address)
	}
	if n, ok := p.TakeNotice(); ok {
		view.Notice = &n
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		slog.Error("render dashboard", "panel_id", snap.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleDashboard handles GET /?network=. Every load mounts a fresh panel.
func (s *CounterServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.MountPanel(r.Context(), r.URL.Query())
	if err != nil {
		http.Error(w, "failed to mount panel", http.StatusInternalServerError)
		return
	}
	s.renderDashboard(w, r, p)
}

// handleShowPanel handles GET /panels/{id}. Unknown or reaped panels send
// the browser back to a fresh mount.
func (s *CounterServer) handleShowPanel(w http.ResponseWriter, r *http.Request) {
	p, err := s.Panels.Get(r.PathValue("id"))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderDashboard(w, r, p)
}

// handleFormOperation handles POST /panels/{id}/ops/{op}: run the operation,
// keep the notification for the next render, and redirect back.
func (s *CounterServer) handleFormOperation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, n, err := s.RunOperation(r.Context(), id, requestSessionID(r), model.Operation(r.PathValue("op")))
	var ie inputError
	switch {
	case errors.As(err, &ie):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if p, err := s.Panels.Get(id); err == nil {
		p.SetNotice(n)
	}
	http.Redirect(w, r, panelPath(id), http.StatusSeeOther)
}

// handleFormConnect handles POST /wallet/connect.
func (s *CounterServer) handleFormConnect(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ConnectWallet(r.Context())
	if err != nil {
		http.Error(w, "failed to connect wallet", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

// handleFormDisconnect handles POST /wallet/disconnect.
func (s *CounterServer) handleFormDisconnect(w http.ResponseWriter, r *http.Request) {
	if id := requestSessionID(r); id != "" {
		if err := s.DisconnectWallet(r.Context(), id); err != nil && !errors.Is(err, wallet.ErrNoSession) {
			slog.Warn("disconnect wallet", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

func panelPath(id string) string {
	return "/panels/" + url.PathEscape(id)
}

// returnPath is the page a wallet form returns to: the posting panel, or a
// fresh mount when there is none.
func returnPath(r *http.Request) string {
	if id := r.PostFormValue("panel"); id != "" {
		return panelPath(id)
	}
	return "/"
}
