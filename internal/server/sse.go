package server

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// sseRingBufferSize bounds how far back Last-Event-ID can replay.
	sseRingBufferSize = 1000

	sseKeepaliveInterval = 15 * time.Second
	sseClientBuffer      = 64
)

// sseEvent is one frame on the stream. PanelID is empty for events that
// belong to no panel.
type sseEvent struct {
	ID      uint64
	Topic   string
	PanelID string
	Data    []byte
}

// eventRing keeps the most recent events in publish order.
type eventRing struct {
	buf   []sseEvent
	start int
}

func (r *eventRing) push(e sseEvent) {
	if len(r.buf) < sseRingBufferSize {
		r.buf = append(r.buf, e)
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % sseRingBufferSize
}

// after returns events with ID > id, oldest first.
func (r *eventRing) after(id uint64) []*sseEvent {
	var out []*sseEvent
	for i := range r.buf {
		e := r.buf[(r.start+i)%len(r.buf)]
		if e.ID > id {
			out = append(out, &e)
		}
	}
	return out
}

// sseHub fans recorded events out to stream subscribers.
type sseHub struct {
	mu      sync.Mutex
	lastID  uint64
	ring    eventRing
	clients map[*sseClient]struct{}
}

// sseClient receives events matching its topic patterns and panel.
type sseClient struct {
	topics  []string
	panelID string
	ch      chan *sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast assigns the next ID to an event and delivers it. A subscriber
// whose buffer is full misses the event.
func (h *sseHub) broadcast(topic, panelID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	e := sseEvent{ID: h.lastID, Topic: topic, PanelID: panelID, Data: payload}
	h.ring.push(e)
	for c := range h.clients {
		if !c.matches(&e) {
			continue
		}
		evt := e
		select {
		case c.ch <- &evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string, panelID string) *sseClient {
	c := &sseClient{topics: topics, panelID: panelID, ch: make(chan *sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *sseHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *sseHub) eventsSince(lastID uint64) []*sseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ring.after(lastID)
}

func (c *sseClient) matches(e *sseEvent) bool {
	if c.panelID != "" && c.panelID != e.PanelID {
		return false
	}
	return len(c.topics) == 0 || slices.ContainsFunc(c.topics, func(p string) bool {
		return matchTopicPattern(p, e.Topic)
	})
}

// matchTopicPattern uses NATS subject wildcards: "*" stands for exactly one
// token and a final ">" for one or more.
func matchTopicPattern(pattern, topic string) bool {
	want := strings.Split(pattern, ".")
	have := strings.Split(topic, ".")
	for i, tok := range want {
		switch {
		case tok == ">" && i == len(want)-1:
			return len(have) > i
		case i >= len(have):
			return false
		case tok != "*" && tok != have[i]:
			return false
		}
	}
	return len(want) == len(have)
}

// parseTopics reads the comma-separated topics query parameter.
func parseTopics(q string) []string {
	var topics []string
	for t := range strings.SplitSeq(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleEventStream handles GET /v1/events/stream?topics=&panel=.
func (s *CounterServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.streamEvents(w, r, parseTopics(q.Get("topics")), q.Get("panel"))
}

// handlePanelStream handles GET /panels/{id}/stream, which feeds the
// dashboard its operation notifications.
func (s *CounterServer) handlePanelStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Panels.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.streamEvents(w, r, []string{"counter.op.*"}, id)
}

func (s *CounterServer) streamEvents(w http.ResponseWriter, r *http.Request, topics []string, panelID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.sseHub.subscribe(topics, panelID)
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Subscribing first means nothing published during replay is lost;
	// the ID check drops anything replay already sent.
	var sent uint64
	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		sent = lastID
		for _, e := range s.sseHub.eventsSince(lastID) {
			if client.matches(e) {
				writeSSEEvent(w, e)
				sent = e.ID
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-client.ch:
			if e.ID <= sent {
				continue
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w io.Writer, e *sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}
