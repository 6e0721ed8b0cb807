package wallet

import (
	"crypto/ed25519"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestConnect(t *testing.T) {
	p := NewProvider()
	s, err := p.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !strings.HasPrefix(s.ID, "ws-") {
		t.Errorf("session id %q missing ws- prefix", s.ID)
	}
	if !addressPattern.MatchString(s.Address) {
		t.Errorf("address %q is not a 32-byte hex address", s.Address)
	}
	if !s.Connected() {
		t.Error("new session should be connected")
	}

	got, err := p.Lookup(s.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Address != s.Address {
		t.Errorf("Lookup address = %q, want %q", got.Address, s.Address)
	}
}

func TestConnect_DistinctAddresses(t *testing.T) {
	p := NewProvider()
	a, _ := p.Connect()
	b, _ := p.Connect()
	if a.Address == b.Address || a.ID == b.ID {
		t.Fatal("two connects produced the same session")
	}
}

func TestLookup_Empty(t *testing.T) {
	p := NewProvider()
	s, err := p.Lookup("")
	if err != nil || s != nil {
		t.Fatalf("Lookup(\"\") = %v, %v; want nil, nil", s, err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	p := NewProvider()
	if _, err := p.Lookup("ws-missing"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestDisconnect(t *testing.T) {
	p := NewProvider()
	s, _ := p.Connect()

	if err := p.Disconnect(s.ID); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, err := p.Lookup(s.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Lookup after disconnect err = %v, want ErrNoSession", err)
	}
	if err := p.Disconnect(s.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("second Disconnect err = %v, want ErrNoSession", err)
	}
}

func TestAddress_Deterministic(t *testing.T) {
	pub := ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))
	a := Address(pub)
	b := Address(pub)
	if a != b {
		t.Fatalf("Address not deterministic: %q vs %q", a, b)
	}
	if !addressPattern.MatchString(a) {
		t.Errorf("Address = %q", a)
	}
}

func TestSweep_DropsIdleSessions(t *testing.T) {
	p := NewProvider()
	stale, _ := p.Connect()
	fresh, _ := p.Connect()

	later := time.Now().Add(2 * time.Hour)
	p.mu.Lock()
	p.sessions[fresh.ID].lastSeen = later
	p.mu.Unlock()

	if n := p.sweep(time.Hour, later.Add(time.Minute)); n != 1 {
		t.Fatalf("sweep removed %d sessions, want 1", n)
	}
	if _, err := p.Lookup(stale.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("idle session still present: %v", err)
	}
	if _, err := p.Lookup(fresh.ID); err != nil {
		t.Errorf("recent session dropped: %v", err)
	}
}

func TestLookup_RefreshesLastSeen(t *testing.T) {
	p := NewProvider()
	s, _ := p.Connect()
	p.mu.Lock()
	p.sessions[s.ID].lastSeen = time.Now().Add(-time.Hour)
	p.mu.Unlock()

	if _, err := p.Lookup(s.ID); err != nil {
		t.Fatal(err)
	}
	if n := p.sweep(30*time.Minute, time.Now()); n != 0 {
		t.Fatalf("sweep removed a session used just now")
	}
}

func TestStartReaper(t *testing.T) {
	p := NewProvider()
	if _, err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	evicted := make(chan int, 1)
	p.StartReaper(time.Nanosecond, 10*time.Millisecond, func(n int) { evicted <- n })
	defer p.Stop()

	select {
	case n := <-evicted:
		if n != 1 || p.Len() != 0 {
			t.Fatalf("evicted %d, %d left", n, p.Len())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never ran")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	NewProvider().Stop()
}
