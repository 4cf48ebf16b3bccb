// Package auth manages the bearer credential used for backend calls: a
// process-wide atomic store written by a background refresh loop and read
// by every HTTP call site.
package auth

import (
	"errors"
	"sync/atomic"
)

// ErrNoToken is returned by Token when no credential has been acquired yet
// (or the initial acquisition failed).
var ErrNoToken = errors.New("auth: no access token available")

// Credential is the token pair returned by the identity provider.
// It is replaced as a whole on every refresh, never mutated field by field.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// Store holds the current Credential. The refresh loop is the sole writer;
// any number of goroutines may read concurrently. Readers observe either
// the old or the new pair, never a torn one.
type Store struct {
	v atomic.Pointer[Credential]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Current returns the most recently stored credential, or the zero value
// if none has been stored yet.
func (s *Store) Current() Credential {
	if c := s.v.Load(); c != nil {
		return *c
	}

	return Credential{}
}

// Replace atomically installs a new credential pair.
func (s *Store) Replace(c Credential) {
	s.v.Store(&c)
}

// Token returns the current access token for use as a bearer credential.
// Implements the demis.TokenSource interface.
func (s *Store) Token() (string, error) {
	c := s.Current()
	if c.AccessToken == "" {
		return "", ErrNoToken
	}

	return c.AccessToken, nil
}
