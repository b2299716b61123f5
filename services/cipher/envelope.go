package cipher

import (
	"encoding/hex"
	"strings"
)

// Envelope is the serialized form of one encryption: the IV and the CBC
// ciphertext, written as "ivHex:cipherHex".
type Envelope struct {
	IV         []byte
	Ciphertext []byte
}

func (e Envelope) String() string {
	return hex.EncodeToString(e.IV) + ":" + hex.EncodeToString(e.Ciphertext)
}

// ParseEnvelope splits on the first colon only. Any hex or length problem is
// reported as ErrInvalidCiphertext.
func ParseEnvelope(s string) (Envelope, error) {
	ivHex, cipherHex, found := strings.Cut(s, ":")
	if !found || ivHex == "" || cipherHex == "" {
		return Envelope{}, ErrInvalidCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != IVSize {
		return Envelope{}, ErrInvalidCiphertext
	}

	ct, err := hex.DecodeString(cipherHex)
	if err != nil {
		return Envelope{}, ErrInvalidCiphertext
	}

	return Envelope{IV: iv, Ciphertext: ct}, nil
}
