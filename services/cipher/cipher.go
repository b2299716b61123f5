// Package cipher encrypts short strings (portal PINs and session payloads)
// under a single shared key with AES-256-CBC and a fresh IV per call.
package cipher

import (
	"bytes"
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	KeySize = 32
	IVSize  = aes.BlockSize

	keyFiller = '0'
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrEmptySecret       = errors.New("encryption secret is empty")
)

type Cipher struct {
	key    []byte
	block  gocipher.Block
	random io.Reader
}

// DeriveKey normalizes secret to exactly KeySize bytes. A 64-character hex
// string is decoded; anything else is right-padded with '0' and truncated.
func DeriveKey(secret string) []byte {
	if len(secret) == KeySize*2 {
		if decoded, err := hex.DecodeString(secret); err == nil {
			return decoded
		}
	}

	key := make([]byte, KeySize)
	n := copy(key, secret)
	for i := n; i < KeySize; i++ {
		key[i] = keyFiller
	}
	return key
}

func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return NewWithKey(DeriveKey(secret), rand.Reader)
}

// NewWithKey lets tests supply a fixed key and a deterministic IV source.
func NewWithKey(key []byte, random io.Reader) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	if random == nil {
		random = rand.Reader
	}
	return &Cipher{key: key, block: block, random: random}, nil
}

func (c *Cipher) Seal(plaintext string) (Envelope, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, padded)

	return Envelope{IV: iv, Ciphertext: ct}, nil
}

func (c *Cipher) Open(env Envelope) (string, error) {
	if len(env.IV) != IVSize || len(env.Ciphertext) == 0 || len(env.Ciphertext)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	plain := make([]byte, len(env.Ciphertext))
	gocipher.NewCBCDecrypter(c.block, env.IV).CryptBlocks(plain, env.Ciphertext)

	unpadded, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(unpadded), nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	env, err := c.Seal(plaintext)
	if err != nil {
		return "", err
	}
	return env.String(), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	env, err := ParseEnvelope(ciphertext)
	if err != nil {
		return "", err
	}
	return c.Open(env)
}

// Sign returns an HMAC-SHA256 tag over parts using a subkey bound to purpose.
// CBC alone does not detect tampering, so callers that need integrity attach
// this tag inside the encrypted payload.
func (c *Cipher) Sign(purpose string, parts ...string) []byte {
	sub := hmac.New(sha256.New, c.key)
	sub.Write([]byte(purpose))

	mac := hmac.New(sha256.New, sub.Sum(nil))
	for _, p := range parts {
		mac.Write([]byte(p))
		mac.Write([]byte{0})
	}
	return mac.Sum(nil)
}

func (c *Cipher) Verify(tag []byte, purpose string, parts ...string) bool {
	return hmac.Equal(tag, c.Sign(purpose, parts...))
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
