package model

import "time"

// WalletSession is a connected wallet account. A nil session means no
// wallet is connected.
type WalletSession struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Connected reports whether s represents a usable account.
func (s *WalletSession) Connected() bool {
	return s != nil && s.Address != ""
}

// ShortAddress renders an address as its first 6 and last 4 characters,
// e.g. "0x1a2b...9f0e". Short addresses are returned unchanged.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
