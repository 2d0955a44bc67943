package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA-256 hashing for session tokens
    "encoding/hex"  // hex encoding of random bytes and digests
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It is used to produce session
// tokens, CSRF tokens and the shared secrets handed to remote agents.  If
// the random number generator fails, an error is returned.
func RandomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hash of a raw bearer token as a hex string.
// Only the hash is persisted, so a leaked database dump cannot be replayed
// as live sessions.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
