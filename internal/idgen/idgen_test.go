package idgen

import (
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	for _, k := range []Kind{Panel, Wallet} {
		id, err := New(k)
		if err != nil {
			t.Fatalf("New(%q): %v", k, err)
		}
		if !k.Owns(id) {
			t.Errorf("New(%q) = %q, not owned by its kind", k, id)
		}
	}
}

func TestOwns(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		id   string
		want bool
	}{
		{Panel, "pn-abcDEF123456", true},
		{Panel, "ws-abcDEF123456", false},
		{Panel, "pn-abc", false},
		{Panel, "pn-abcDEF1234567", false},
		{Panel, "pn-abc_EF123456", false},
		{Wallet, "ws-000000000000", true},
		{Wallet, "", false},
	} {
		if got := tc.kind.Owns(tc.id); got != tc.want {
			t.Errorf("%q.Owns(%q) = %v, want %v", tc.kind, tc.id, got, tc.want)
		}
	}
}

func TestNew_Unique(t *testing.T) {
	const workers, each = 8, 1000
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers*each)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Go(func() {
			for range each {
				id, err := New(Panel)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %q", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		})
	}
	wg.Wait()
}
