package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"tapwire/internal/config"
	"tapwire/internal/taperr"
)

// The device signing key is an ed25519 seed persisted once per install.
// TW_DEVICE_KEY_B64 overrides the on-disk key for ephemeral deployments.

const keyFileName = "device_signing.key"

type DeviceKey struct {
	private ed25519.PrivateKey
}

// LoadOrCreate returns the persisted device key, generating and persisting
// a fresh one on first use. Any storage failure surfaces as
// taperr.CodeStorageUnavailable since nothing requiring a signature can
// proceed without the key.
func LoadOrCreate(dataDir string) (*DeviceKey, error) {
	if seed := config.ParseBase64Env("TW_DEVICE_KEY_B64"); len(seed) > 0 {
		if len(seed) != ed25519.SeedSize {
			return nil, taperr.StorageUnavailable("device key override has wrong size", nil)
		}
		return &DeviceKey{private: ed25519.NewKeyFromSeed(seed)}, nil
	}

	if dataDir == "" {
		return nil, taperr.StorageUnavailable("data dir required for device key", nil)
	}
	keyPath := filepath.Join(dataDir, "secrets", keyFileName)

	seed, err := os.ReadFile(keyPath)
	if err == nil {
		if len(seed) != ed25519.SeedSize {
			return nil, taperr.StorageUnavailable("persisted device key is corrupt", nil)
		}
		return &DeviceKey{private: ed25519.NewKeyFromSeed(seed)}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, taperr.StorageUnavailable("read device key", err)
	}

	seed = make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, taperr.StorageUnavailable("generate device key", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, taperr.StorageUnavailable("create secrets dir", err)
	}
	if err := os.WriteFile(keyPath, seed, 0o600); err != nil {
		return nil, taperr.StorageUnavailable("persist device key", err)
	}
	return &DeviceKey{private: ed25519.NewKeyFromSeed(seed)}, nil
}

func (k *DeviceKey) Private() ed25519.PrivateKey {
	return k.private
}

func (k *DeviceKey) PublicHex() string {
	return hex.EncodeToString(k.private.Public().(ed25519.PublicKey))
}
