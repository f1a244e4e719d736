package bucketing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Pseudonymizer maps a raw user identifier to a stable pseudonymous
// identifier via HMAC-SHA256 keyed with a pepper held outside this
// module. The mapping is one-way: nothing downstream can decode the
// raw id, and no reverse lookup table is kept.
type Pseudonymizer struct {
	pepper []byte
}

// NewPseudonymizer creates a pseudonymizer with the given pepper
func NewPseudonymizer(pepper string) *Pseudonymizer {
	return &Pseudonymizer{pepper: []byte(pepper)}
}

// Pseudonymize returns the stable pseudonymous id for a raw user id
func (p *Pseudonymizer) Pseudonymize(rawUserID string) string {
	mac := hmac.New(sha256.New, p.pepper)
	mac.Write([]byte(rawUserID))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}
