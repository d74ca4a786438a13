package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Payloads are signed over their canonical JSON form with the signature
// field removed, so either side can rebuild the exact signed bytes from the
// decoded struct. Signatures and public keys travel hex-encoded.

type Signer struct {
	private ed25519.PrivateKey
}

func New(private ed25519.PrivateKey) *Signer {
	return &Signer{private: private}
}

func (s *Signer) Sign(payload any) (string, error) {
	msg, err := Canonical(payload)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(s.private, msg)), nil
}

func (s *Signer) PublicHex() string {
	return hex.EncodeToString(s.private.Public().(ed25519.PublicKey))
}

// Verify recomputes the canonical form of payload and checks sigHex against
// the asserted public key. Returns false on any decode failure; callers
// treat false as a security-relevant rejection, never as a retryable error.
func Verify(payload any, sigHex, pubHex string) bool {
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg, err := Canonical(payload)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// Canonical serializes payload with sorted keys and the signature field
// dropped. Round-tripping through a map gives deterministic key order;
// amounts are decimal strings so they survive the trip unchanged.
func Canonical(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	delete(fields, "signature")
	return json.Marshal(fields)
}
