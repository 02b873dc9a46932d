// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package credentials compares and produces stored secrets for instructor
// passwords and the admin PIN.
package credentials

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/united-manufacturing-hub/htapp/pkg/config"
)

// Comparator checks a candidate secret against its stored form and produces
// the stored form of a new secret.
type Comparator interface {
	Matches(stored, candidate string) bool
	Hash(secret string) (string, error)
}

// For returns the comparator of a configured scheme.
func For(scheme config.CredentialScheme) (Comparator, error) {
	switch scheme {
	case config.CredentialSchemePlaintext:
		return Plaintext{}, nil
	case config.CredentialSchemeBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown credential scheme %q", scheme)
	}
}

// Plaintext stores secrets as given.
type Plaintext struct{}

func (Plaintext) Matches(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

func (Plaintext) Hash(secret string) (string, error) {
	return secret, nil
}

// Bcrypt stores bcrypt hashes. Stored values that are not bcrypt hashes,
// such as the seeded default PIN, are compared as plaintext.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Matches(stored, candidate string) bool {
	if !IsBcryptHash(stored) {
		return Plaintext{}.Matches(stored, candidate)
	}

	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}

func (b Bcrypt) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}

	return string(hash), nil
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
