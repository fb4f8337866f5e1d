// Package credential reads and stores server passwords.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "mailterm"

// Keys under which passwords are stored.
const (
	SMTPPasswordKey = "smtp-password"
	IMAPPasswordKey = "imap-password"
)

// Store looks passwords up in the environment first and the system
// keyring second.
type Store struct {
	open   func() (keyring.Keyring, error)
	getenv func(string) string
}

// New returns a Store backed by the system keyring.
func New() *Store {
	return &Store{open: openKeyring, getenv: os.Getenv}
}

// NewWithKeyring returns a Store backed by ring.
func NewWithKeyring(ring keyring.Keyring, getenv func(string) string) *Store {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Store{
		open:   func() (keyring.Keyring, error) { return ring, nil },
		getenv: getenv,
	}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailterm/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailterm-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// EnvVar returns the environment variable that overrides key,
// e.g. MAILTERM_SMTP_PASSWORD.
func EnvVar(key string) string {
	return "MAILTERM_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Password returns the secret for key. A missing secret is not an error;
// the empty string is returned.
func (s *Store) Password(key string) (string, error) {
	if v := s.getenv(EnvVar(key)); v != "" {
		return v, nil
	}

	v, err := s.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

// Get retrieves a credential value by key from the keyring.
func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the keyring.
func (s *Store) Set(key string, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the keyring.
func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
