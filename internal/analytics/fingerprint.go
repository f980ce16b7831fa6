package analytics

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const fingerprintLength = 32

// Fingerprinter derives pseudonymous visitor identifiers. Raw IPs never leave
// this type: callers get keyed hashes only.
type Fingerprinter struct {
	salt   []byte
	window time.Duration
}

// NewFingerprinter creates a fingerprinter keyed by salt. Visits in the same
// window share a fingerprint; window <= 0 means a visitor keeps one
// fingerprint forever.
func NewFingerprinter(salt string, window time.Duration) *Fingerprinter {
	return &Fingerprinter{salt: []byte(salt), window: window}
}

// Fingerprint identifies (ip, userAgent) within the window containing at.
func (f *Fingerprinter) Fingerprint(ip, userAgent string, at time.Time) string {
	return f.sum("fp", ip, userAgent, f.bucket(at))
}

// HashIP returns the keyed hash stored in place of the client IP.
func (f *Fingerprinter) HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	return f.sum("ip", ip)
}

func (f *Fingerprinter) bucket(at time.Time) string {
	seconds := int64(f.window / time.Second)
	if seconds <= 0 {
		return "0"
	}
	return strconv.FormatInt(at.Unix()/seconds, 10)
}

func (f *Fingerprinter) sum(parts ...string) string {
	mac := hmac.New(sha256.New, f.salt)
	for i, p := range parts {
		if i > 0 {
			mac.Write([]byte{'|'})
		}
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))[:fingerprintLength]
}
