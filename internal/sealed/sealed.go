package sealed

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// Sealed boxes carry the reply leg of a contact exchange: an ephemeral
// X25519 key agreement with the recipient's advertised exchange key, then
// ChaCha20-Poly1305 over the plaintext card. The box is self-contained;
// only the recipient's exchange private key opens it.

var ErrCannotOpen = errors.New("cannot open sealed box")

type Box struct {
	EphemeralKey string
	Nonce        string
	Ciphertext   string
}

type KeyPair struct {
	public  [32]byte
	private [32]byte
}

func GenerateKeyPair() (*KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.private[:]); err != nil {
		return nil, err
	}
	public, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.public[:], public)
	return &kp, nil
}

func (kp *KeyPair) PublicB64() string {
	return base64.RawURLEncoding.EncodeToString(kp.public[:])
}

func Seal(plaintext []byte, recipientPubB64 string) (*Box, error) {
	recipientPub, err := base64.RawURLEncoding.DecodeString(recipientPubB64)
	if err != nil || len(recipientPub) != 32 {
		return nil, fmt.Errorf("invalid recipient exchange key")
	}

	eph, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	shared, err := curve25519.X25519(eph.private[:], recipientPub)
	if err != nil {
		return nil, err
	}
	key := sha256.Sum256(shared)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Box{
		EphemeralKey: eph.PublicB64(),
		Nonce:        base64.RawURLEncoding.EncodeToString(nonce),
		Ciphertext:   base64.RawURLEncoding.EncodeToString(ciphertext),
	}, nil
}

func (kp *KeyPair) Open(box Box) ([]byte, error) {
	ephemeralPub, err := base64.RawURLEncoding.DecodeString(box.EphemeralKey)
	if err != nil || len(ephemeralPub) != 32 {
		return nil, ErrCannotOpen
	}
	nonce, err := base64.RawURLEncoding.DecodeString(box.Nonce)
	if err != nil {
		return nil, ErrCannotOpen
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(box.Ciphertext)
	if err != nil {
		return nil, ErrCannotOpen
	}

	shared, err := curve25519.X25519(kp.private[:], ephemeralPub)
	if err != nil {
		return nil, ErrCannotOpen
	}
	key := sha256.Sum256(shared)

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, ErrCannotOpen
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrCannotOpen
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCannotOpen
	}
	return plaintext, nil
}
