package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// KeySize is the AES-256 key length required by NewCipher.
const KeySize = 32

// ErrKeySize is returned for keys that are not KeySize bytes long.
var ErrKeySize = errors.New("crypto: encryption key must be 32 bytes")

// Cipher seals personal data (contact emails) before it is written to the store.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates an AES-GCM cipher from a 32 byte key
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aesgcm}, nil
}

// Encrypt encrypts data using AES-GCM and returns the ciphertext and nonce
func (c *Cipher) Encrypt(plaintext string) ([]byte, []byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts AES-GCM encrypted data
func (c *Cipher) Decrypt(ciphertext, nonce []byte) (string, error) {
	if len(nonce) != c.aead.NonceSize() {
		return "", errors.New("crypto: invalid nonce size")
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
