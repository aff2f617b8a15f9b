package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex identifier with a type prefix, e.g. "page_a1b2…"
// or "sec_c3d4…". Section ids assigned at creation stay stable across the
// load/edit/save round trip.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewPageID returns a fresh page identifier.
func NewPageID() string { return NewID("page") }

// NewSectionID returns a fresh section identifier.
func NewSectionID() string { return NewID("sec") }
