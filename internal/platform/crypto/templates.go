package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks values written by Seal so rows stored before a key was
// configured still read back as plaintext.
const sealedPrefix = "enc:v1:"

var ErrMalformed = errors.New("sealed value is malformed")

// TemplateCipher seals fingerprint templates with AES-256-GCM. Without a key
// it passes values through unchanged.
type TemplateCipher struct {
	aead cipher.AEAD
}

func New(key string) (*TemplateCipher, error) {
	if key == "" {
		return &TemplateCipher{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != 32 {
		return nil, fmt.Errorf("TEMPLATE_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &TemplateCipher{aead: aead}, nil
}

func (c *TemplateCipher) Configured() bool {
	return c != nil && c.aead != nil
}

// Seal leaves already sealed values alone so rows can be rewritten as is.
func (c *TemplateCipher) Seal(plain string) (string, error) {
	if plain == "" || !c.Configured() || strings.HasPrefix(plain, sealedPrefix) {
		return plain, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *TemplateCipher) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !c.Configured() {
		return "", fmt.Errorf("%w: no key configured", ErrMalformed)
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	size := c.aead.NonceSize()
	if len(raw) < size {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plain), nil
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
