// Package auth verifies dashboard logins against bcrypt-hashed credentials
// and tracks the single active session.
package auth

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = stderrors.New("invalid username or password")

// Verifier checks a username and password pair.
type Verifier interface {
	Verify(ctx context.Context, username, password string) error
}

// Store verifies logins against bcrypt hashes held in memory.
type Store struct {
	hashes map[string][]byte
	// compared when the user is unknown so both paths cost one bcrypt run
	dummy []byte
}

// NewStore builds a Store from "username:bcrypt-hash" entries.
func NewStore(entries []string) (*Store, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	s := &Store{hashes: make(map[string][]byte, len(entries)), dummy: dummy}
	for i, entry := range entries {
		user, hash, ok := strings.Cut(strings.TrimSpace(entry), ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("credential entry %d: want username:hash", i+1)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("credential entry %d for %q: not a bcrypt hash: %w", i+1, user, err)
		}
		s.hashes[user] = []byte(hash)
	}

	if len(s.hashes) == 0 {
		return nil, stderrors.New("no credentials configured")
	}
	return s, nil
}

// LoadStore reads an htpasswd-style file of "username:bcrypt-hash" lines.
// Blank lines and lines starting with # are ignored.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("open credential file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := readEntries(f)
	if err != nil {
		return nil, fmt.Errorf("read credential file %s: %w", path, err)
	}
	return NewStore(entries)
}

func readEntries(r io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, scanner.Err()
}

func (s *Store) Verify(_ context.Context, username, password string) error {
	hash, ok := s.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for a credential entry.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
