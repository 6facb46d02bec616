// Package token derives the shared secret used between a GitLab webhook and
// the Jenkins job it triggers.
package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// Derive returns the hex SHA-256 digest of seed followed by the project's
// namespaced path. The same (seed, path) pair always yields the same token,
// so it never needs to be stored.
func Derive(seed, pathWithNamespace string) string {
	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte(pathWithNamespace))
	return hex.EncodeToString(h.Sum(nil))
}
