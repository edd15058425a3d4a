package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32 // AES-256
	nonceSize        = 12 // GCM standard nonce size
	saltSize         = 16
	pbkdf2Iterations = 100000
)

// ErrUnseal is returned when a stored token cannot be decrypted with the configured key
var ErrUnseal = errors.New("unseal failed: invalid key or corrupted data")

// Sealer encrypts the token before it reaches local storage
type Sealer struct {
	key []byte
}

// NewSealer derives an AES-256 key from passphrase and salt
func NewSealer(passphrase string, salt []byte) *Sealer {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	return &Sealer{key: key}
}

// GenerateSalt generates a random salt
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Seal encrypts plaintext with AES-256-GCM and returns nonce+ciphertext as base64
func (s *Sealer) Seal(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Unseal reverses Seal
func (s *Sealer) Unseal(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrUnseal
	}
	if len(data) < nonceSize {
		return "", ErrUnseal
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrUnseal
	}
	return string(plaintext), nil
}

func (s *Sealer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
