// fingerprint.go generates stable hashes for grouping similar notices.

package hoptoad

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrames is how many leading frames take part in the fingerprint.
const fingerprintFrames = 3

// Fingerprint generates a hash for grouping similar notices.
// The fingerprint is based on:
//   - error class, controller, action
//   - file and method of the first 3 backtrace frames
//
// Messages, line numbers and request data are ignored.
func Fingerprint(n *Notice) string {
	parts := []string{n.err.Class, n.request.Controller, n.request.Action}
	for i, line := range n.err.Backtrace {
		if i == fingerprintFrames {
			break
		}
		parts = append(parts, line.File+"#"+line.Method)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}
