// Package id generates the identifiers Booklog assigns: prefixed NanoIDs for
// stored entities and tokens, UUIDs for reading-session runs.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes of generated ids.
const (
	PrefixUser  = "user"
	PrefixToken = "tok"
)

// Generate returns prefix-<nanoid>, e.g. "user-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system runs out of entropy.
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// NewUserID returns a fresh user id.
func NewUserID() (string, error) {
	return Generate(PrefixUser)
}

// NewRunID identifies one started reading session.
func NewRunID() string {
	return uuid.NewString()
}
