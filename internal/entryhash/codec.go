package entryhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
)

// Codec produces signed, reversible public identifiers for submissions.
// The payload is "<entry_id>|<hex hmac-sha256(entry_id, secret)>" encoded
// with a base64 alphabet where +/= are swapped for -_, so hashes survive
// URLs and query strings untouched.
type Codec struct {
	secret []byte
}

var (
	encodeReplacer = strings.NewReplacer("+", "-", "/", "_", "=", ",")
	decodeReplacer = strings.NewReplacer("-", "+", "_", "/", ",", "=")
)

// NewCodec creates a codec bound to the site secret.
func NewCodec(secret string) *Codec {
	if secret == "" {
		panic("entryhash: secret cannot be empty")
	}
	return &Codec{secret: []byte(secret)}
}

// Encode returns the public hash for an entry id. Deterministic for a
// fixed secret; returns "" for non-positive ids.
func (c *Codec) Encode(entryID int64) string {
	if entryID <= 0 {
		return ""
	}
	id := strconv.FormatInt(entryID, 10)
	payload := id + "|" + c.sign(id)
	return encodeReplacer.Replace(base64.StdEncoding.EncodeToString([]byte(payload)))
}

// Decode validates a public hash and returns the entry id it encodes.
// Returns 0 for anything malformed or tampered with. Decode sits on the
// public request path, so every failure is a sentinel, never an error.
func (c *Codec) Decode(hash string) int64 {
	if hash == "" {
		return 0
	}

	raw, err := base64.StdEncoding.DecodeString(decodeReplacer.Replace(hash))
	if err != nil {
		return 0
	}

	id, signature, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" || signature == "" {
		return 0
	}

	if !hmac.Equal([]byte(c.sign(id)), []byte(signature)) {
		return 0
	}

	entryID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || entryID <= 0 {
		return 0
	}
	return entryID
}

func (c *Codec) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
