package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"docvault/internal/core"
)

// EncryptedStore wraps another ObjectStore and encrypts content at rest
// with filippo.io/age X25519 keys. Keys live in files: the recipient
// (public key) encrypts on Put, the identity (private key) decrypts on
// Get. The engine runs unattended, so the identity file is plaintext
// and relies on file permissions.
type EncryptedStore struct {
	inner         core.ObjectStore
	recipientPath string
	identityPath  string
}

// NewEncryptedStore wraps inner with age encryption using the key files
// at the given paths.
func NewEncryptedStore(inner core.ObjectStore, recipientPath, identityPath string) *EncryptedStore {
	return &EncryptedStore{
		inner:         inner,
		recipientPath: recipientPath,
		identityPath:  identityPath,
	}
}

// GenerateKeys creates a new X25519 key pair and writes the recipient
// and identity files. Fails if the identity file already exists.
func GenerateKeys(recipientPath, identityPath string) error {
	if _, err := os.Stat(identityPath); err == nil {
		return fmt.Errorf("identity file already exists: %s", identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(recipientPath), 0700); err != nil {
		return fmt.Errorf("creating recipient key directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity key directory: %w", err)
	}

	if err := os.WriteFile(recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient key: %w", err)
	}
	if err := os.WriteFile(identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity key: %w", err)
	}
	return nil
}

// Put encrypts the content and stores the ciphertext under key.
func (e *EncryptedStore) Put(ctx context.Context, key string, r io.Reader) error {
	recipient, err := e.loadRecipient()
	if err != nil {
		return fmt.Errorf("loading recipient key: %w", err)
	}

	var buf bytes.Buffer
	encWriter, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return e.inner.Put(ctx, key, &buf)
}

// Get retrieves the ciphertext under key, decrypts it and writes the
// plaintext to w.
func (e *EncryptedStore) Get(ctx context.Context, key string, w io.Writer) error {
	identity, err := e.loadIdentity()
	if err != nil {
		return fmt.Errorf("loading identity key: %w", err)
	}

	var buf bytes.Buffer
	if err := e.inner.Get(ctx, key, &buf); err != nil {
		return err
	}

	decReader, err := age.Decrypt(&buf, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// Delete removes the object from the underlying store.
func (e *EncryptedStore) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

// ValidateSetup checks the underlying store and that both key files
// parse.
func (e *EncryptedStore) ValidateSetup(ctx context.Context) error {
	if err := e.inner.ValidateSetup(ctx); err != nil {
		return err
	}
	if _, err := e.loadRecipient(); err != nil {
		return err
	}
	if _, err := e.loadIdentity(); err != nil {
		return err
	}
	return nil
}

func (e *EncryptedStore) loadRecipient() (age.Recipient, error) {
	data, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in key file")
	}
	return recipients[0], nil
}

func (e *EncryptedStore) loadIdentity() (age.Identity, error) {
	data, err := os.ReadFile(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in key file")
	}
	return identities[0], nil
}

// Compile-time check that EncryptedStore implements core.ObjectStore
var _ core.ObjectStore = (*EncryptedStore)(nil)
