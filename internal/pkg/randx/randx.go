/*
Package randx generates the opaque identifiers used across the server.
*/
package randx

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConnectionID returns a fresh opaque token for a transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// ArchiveKey returns an object key for a history snapshot taken at t,
// e.g. "history/20240101T120000Z-1b4e28ba.json". Keys sort by time.
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("history/%s-%s.json", t.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}
