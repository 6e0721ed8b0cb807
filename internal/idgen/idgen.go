// Package idgen mints the random identifiers for panels and wallet
// sessions.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind is the prefix that tells panel ids and session ids apart.
type Kind string

const (
	Panel  Kind = "pn-"
	Wallet Kind = "ws-"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	size     = 12
)

// New returns a fresh id of kind k.
func New(k Kind) (string, error) {
	s, err := nanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate %sid: %w", k, err)
	}
	return string(k) + s, nil
}

// Owns reports whether id has the shape of an id minted for k.
func (k Kind) Owns(id string) bool {
	rest, ok := strings.CutPrefix(id, string(k))
	if !ok || len(rest) != size {
		return false
	}
	return strings.Trim(rest, alphabet) == ""
}
