package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/metrics"
	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/ratelimit"
)

func TestHandleHealth(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, "GET", "/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestHandleMountAndGetPanel(t *testing.T) {
	_, _, h := newTestServer()

	rec := doJSON(t, h, "POST", "/v1/panels?network=mainnet", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d; body: %s", rec.Code, rec.Body.String())
	}
	snap := decode[panel.Snapshot](t, rec)
	if snap.Network != model.NetworkMainnet || snap.Counter.ID != "0xmain" || snap.Counter.Count != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !strings.HasPrefix(snap.ID, "pn-") {
		t.Errorf("panel id %q lacks pn- prefix", snap.ID)
	}

	rec = doJSON(t, h, "GET", "/v1/panels/"+snap.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[panel.Snapshot](t, rec); got.ID != snap.ID {
		t.Errorf("got panel %q, want %q", got.ID, snap.ID)
	}

	rec = doJSON(t, h, "GET", "/v1/panels", "", nil)
	list := decode[struct {
		Panels []panel.Snapshot `json:"panels"`
	}](t, rec)
	if len(list.Panels) != 1 {
		t.Errorf("listed %d panels, want 1", len(list.Panels))
	}
}

func TestHandleGetPanel_NotFound(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, "GET", "/v1/panels/pn-missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleWalletLifecycle(t *testing.T) {
	_, _, h := newTestServer()

	rec := doJSON(t, h, "GET", "/v1/wallet", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /v1/wallet without session: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/v1/wallet/connect", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("connect: expected 201, got %d", rec.Code)
	}
	sess := decode[model.WalletSession](t, rec)
	if !strings.HasPrefix(sess.ID, "ws-") || !strings.HasPrefix(sess.Address, "0x") || len(sess.Address) != 66 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	rec = doJSON(t, h, "GET", "/v1/wallet", sess.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/wallet: expected 200, got %d", rec.Code)
	}
	if got := decode[model.WalletSession](t, rec); got.Address != sess.Address {
		t.Errorf("address = %q, want %q", got.Address, sess.Address)
	}

	rec = doJSON(t, h, "DELETE", "/v1/wallet", sess.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disconnect: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, h, "DELETE", "/v1/wallet", sess.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second disconnect: expected 404, got %d", rec.Code)
	}
}

func TestHandleRunOperation(t *testing.T) {
	_, _, h := newTestServer()
	snap := decode[panel.Snapshot](t, doJSON(t, h, "POST", "/v1/panels", "", nil))
	sess := decode[model.WalletSession](t, doJSON(t, h, "POST", "/v1/wallet/connect", "", nil))

	for _, tc := range []struct {
		op        string
		session   string
		wantCode  int
		wantKind  model.NotificationKind
		wantCount int
	}{
		{"increment", "", http.StatusOK, model.KindWarning, 0},
		{"increment", sess.ID, http.StatusOK, model.KindSuccess, 1},
		{"increment", sess.ID, http.StatusOK, model.KindSuccess, 2},
		{"decrement", sess.ID, http.StatusOK, model.KindSuccess, 1},
		{"reset", sess.ID, http.StatusOK, model.KindSuccess, 0},
		{"decrement", sess.ID, http.StatusOK, model.KindSuccess, 0},
		{"create", sess.ID, http.StatusOK, model.KindSuccess, 0},
		{"explode", sess.ID, http.StatusBadRequest, "", 0},
	} {
		rec := doJSON(t, h, "POST", "/v1/panels/"+snap.ID+"/"+tc.op, tc.session, nil)
		if rec.Code != tc.wantCode {
			t.Fatalf("%s: expected %d, got %d; body: %s", tc.op, tc.wantCode, rec.Code, rec.Body.String())
		}
		if tc.wantCode != http.StatusOK {
			continue
		}
		resp := decode[OperationResponse](t, rec)
		if resp.Notification.Kind != tc.wantKind {
			t.Errorf("%s: kind = %q, want %q", tc.op, resp.Notification.Kind, tc.wantKind)
		}
		if resp.Panel.Counter.Count != tc.wantCount {
			t.Errorf("%s: count = %d, want %d", tc.op, resp.Panel.Counter.Count, tc.wantCount)
		}
	}
}

func TestHandleRunOperation_UnknownPanel(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, "POST", "/v1/panels/pn-missing/increment", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleGetEvents(t *testing.T) {
	_, _, h := newTestServer()
	snap := decode[panel.Snapshot](t, doJSON(t, h, "POST", "/v1/panels", "", nil))
	doJSON(t, h, "POST", "/v1/panels/"+snap.ID+"/increment", "", nil)

	rec := doJSON(t, h, "GET", "/v1/panels/"+snap.ID+"/events", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[struct {
		Events []model.Event `json:"events"`
	}](t, rec)
	if len(body.Events) != 2 {
		t.Fatalf("got %d events, want 2 (mounted, warned)", len(body.Events))
	}
	if body.Events[0].Topic != "counter.panel.mounted" || body.Events[1].Topic != "counter.op.warned" {
		t.Errorf("topics = %q, %q", body.Events[0].Topic, body.Events[1].Topic)
	}

	rec = doJSON(t, h, "GET", "/v1/panels/"+snap.ID+"/events?topic=counter.op.warned&limit=5", "", nil)
	body = decode[struct {
		Events []model.Event `json:"events"`
	}](t, rec)
	if len(body.Events) != 1 {
		t.Errorf("filtered: got %d events, want 1", len(body.Events))
	}

	rec = doJSON(t, h, "GET", "/v1/panels/pn-none/events", "", nil)
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandleGetEvents_BadParams(t *testing.T) {
	_, _, h := newTestServer()
	for _, q := range []string{"since=yesterday", "limit=-1", "limit=lots"} {
		rec := doJSON(t, h, "GET", "/v1/panels/pn-x/events?"+q, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestHandleListNetworks(t *testing.T) {
	_, _, h := newTestServer()
	rec := doJSON(t, h, "GET", "/v1/networks", "", nil)
	body := decode[struct {
		Networks []struct {
			Network   model.Network `json:"network"`
			PackageID string        `json:"package_id"`
		} `json:"networks"`
		Default model.Network `json:"default"`
	}](t, rec)
	if len(body.Networks) != 3 || body.Default != model.NetworkDevnet {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Networks[1].Network != model.NetworkTestnet || body.Networks[1].PackageID != "0xtest" {
		t.Errorf("networks[1] = %+v", body.Networks[1])
	}
}

func TestAPIAuth(t *testing.T) {
	srv, _, _ := newTestServer()
	h := srv.NewHTTPHandler("secret")

	if rec := doJSON(t, h, "POST", "/v1/panels", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("API without token: expected 401, got %d", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/v1/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest("POST", "/v1/panels", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("API with token: expected 201, got %d", rec.Code)
	}

	// The dashboard is a browser surface and is not behind the token.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("dashboard: expected 200, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	m, err := metrics.New()
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	lim := ratelimit.New(0.001, 2, 0)
	srv := NewCounterServer(Options{
		Executor: executor.New(0, nil),
		Packages: testPackages,
		Limiter:  lim,
		Metrics:  m,
	})
	h := srv.NewHTTPHandler("")
	snap := decode[panel.Snapshot](t, doJSON(t, h, "POST", "/v1/panels", "", nil))
	sess, err := srv.ConnectWallet(t.Context())
	if err != nil {
		t.Fatalf("ConnectWallet: %v", err)
	}
	opPath := "/v1/panels/" + snap.ID + "/increment"

	var codes []int
	for range 3 {
		codes = append(codes, doJSON(t, h, "POST", opPath, "", nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}

	// A live wallet session has its own bucket.
	if rec := doJSON(t, h, "POST", opPath, sess.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("connected session: expected 200, got %d", rec.Code)
	}

	// Ids that name no session share the address bucket.
	for i := range 10 {
		id := fmt.Sprintf("ws-made-up-%d", i)
		if rec := doJSON(t, h, "POST", opPath, id, nil); rec.Code != http.StatusTooManyRequests {
			t.Fatalf("session %q: expected 429, got %d", id, rec.Code)
		}
	}
	if got := lim.Keys(); got != 2 {
		t.Errorf("limiter tracks %d keys, want 2", got)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "counter_rate_limited_total 11") {
		t.Errorf("metrics missing rate limit count:\n%s", rec.Body.String())
	}
}

func TestRateLimit_WalletConnect(t *testing.T) {
	srv := NewCounterServer(Options{
		Executor: executor.New(0, nil),
		Packages: testPackages,
		Limiter:  ratelimit.New(0.001, 2, 0),
	})
	h := srv.NewHTTPHandler("")

	var codes []int
	for range 3 {
		codes = append(codes, doJSON(t, h, "POST", "/v1/wallet/connect", "", nil).Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [201 201 429]", codes)
	}

	// The dashboard form shares the client's bucket.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/wallet/connect", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("form connect: expected 429, got %d", rec.Code)
	}
	if n := srv.Wallets.Len(); n != 2 {
		t.Errorf("%d sessions held, want 2", n)
	}
}
