// Package qrcodec encrypts credential payloads into opaque strings suitable
// for QR content and decrypts them back.  Each encoded string is
// self-contained: base64(iv) + ":" + base64(ciphertext), AES-256-CBC with a
// fresh random IV per call.
package qrcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"passgate/internal/passgate/types"
)

// ErrDecode is the single failure class Decode reports.  Callers must not
// learn whether a bad input failed framing, decryption or field checks.
var ErrDecode = errors.New("qr content cannot be decoded")

const (
	ivDelimiter = ":"

	// KDF parameters.  The salt keeps derived key material independent of
	// the raw secret's format so the secret can be rotated freely.
	kdfIterations = 4096
	kdfKeyLen     = 32
	defaultSalt   = "passgate-qr-v1"
)

// Codec holds process-wide key material.  Safe for concurrent use; both
// operations are pure functions of their input and the derived key.
type Codec struct {
	key []byte
}

// New derives the AES key from the configured secret once, up front.
// An empty salt selects the built-in one.
func New(secret, salt string) *Codec {
	if salt == "" {
		salt = defaultSalt
	}
	key := pbkdf2.Key([]byte(secret), []byte(salt), kdfIterations, kdfKeyLen, sha256.New)
	return &Codec{key: key}
}

// Encode encrypts the payload into transportable QR content.
func (c *Codec) Encode(p types.QRPayload) (string, error) {
	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return base64.StdEncoding.EncodeToString(iv) + ivDelimiter +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decode decrypts QR content back into a payload.  All malformed inputs —
// missing delimiter, bad IV, tampered ciphertext, missing required fields —
// come back wrapped in ErrDecode.
func (c *Codec) Decode(content string) (types.QRPayload, error) {
	var zero types.QRPayload

	ivPart, ctPart, found := strings.Cut(content, ivDelimiter)
	if !found {
		return zero, fmt.Errorf("%w: missing iv delimiter", ErrDecode)
	}

	iv, err := base64.StdEncoding.DecodeString(ivPart)
	if err != nil || len(iv) != aes.BlockSize {
		return zero, fmt.Errorf("%w: malformed iv", ErrDecode)
	}

	ct, err := base64.StdEncoding.DecodeString(ctPart)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return zero, fmt.Errorf("%w: malformed ciphertext", ErrDecode)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return zero, fmt.Errorf("%w: decryption failed", ErrDecode)
	}

	var p types.QRPayload
	if err := json.Unmarshal(plain, &p); err != nil {
		return zero, fmt.Errorf("%w: decryption failed", ErrDecode)
	}

	// Required fields; a payload missing any of them is unusable even if
	// it decrypted cleanly.
	switch {
	case p.UserID == 0:
		return zero, fmt.Errorf("%w: payload missing user id", ErrDecode)
	case !p.Kind.Valid():
		return zero, fmt.Errorf("%w: payload missing kind", ErrDecode)
	case p.IssuedAtMS == 0:
		return zero, fmt.Errorf("%w: payload missing issued_at", ErrDecode)
	case p.ExpiresAtMS == 0:
		return zero, fmt.Errorf("%w: payload missing expiry", ErrDecode)
	}

	return p, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	pad := make([]byte, n)
	for i := range pad {
		pad[i] = byte(n)
	}
	return append(b, pad...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
