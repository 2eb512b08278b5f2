// Package auth hashes passwords and issues access tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the length of a PASETO v4 symmetric key.
const KeySize = 32

const keyFile = "auth.key"

// LoadOrGenerateKey returns the token key stored hex-encoded in
// <dir>/auth.key, creating the file with a random key on first start.
func LoadOrGenerateKey(dir string) ([]byte, error) {
	keyPath := filepath.Join(dir, keyFile)

	//#nosec G304 -- path is derived from the configured metadata dir
	if raw, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != KeySize*2 {
			return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", KeySize*2, len(keyHex))
		}
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid auth key format: %w", err)
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save auth key: %w", err)
	}
	return key, nil
}
