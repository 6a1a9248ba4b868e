package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize   = 24
	keySize     = 32
	hkdfContext = "nrf-quote session cookie v1"
)

// CookieCodec seals cookie values with a key derived from the configured cookie password.
// A sealed value cannot be read or altered without the password.
type CookieCodec struct {
	key [keySize]byte
}

func NewCookieCodec(password string) (*CookieCodec, error) {
	if password == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[NewCookieCodec] cookie password is required")
	}
	c := &CookieCodec{}
	kdf := hkdf.New(sha256.New, []byte(password), nil, []byte(hkdfContext))
	if _, err := io.ReadFull(kdf, c.key[:]); err != nil {
		return nil, errors.Wrapf(err, "[NewCookieCodec] derive key")
	}
	return c, nil
}

func (c *CookieCodec) Encode(value string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", errors.Wrapf(err, "[CookieCodec Encode] nonce")
	}
	sealed := secretbox.Seal(nonce[:], []byte(value), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a sealed value. Tampered, truncated or foreign values return an error
// wrapping errors.ErrSessionNotFound.
func (c *CookieCodec) Decode(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.Wrapf(errors.ErrSessionNotFound, "[CookieCodec Decode] malformed cookie")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", errors.Wrapf(errors.ErrSessionNotFound, "[CookieCodec Decode] cookie failed authentication")
	}
	return string(opened), nil
}
