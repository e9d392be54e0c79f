package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docvault/internal/core"
)

// roundtrip exercises the ObjectStore contract shared by every backend.
func roundtrip(t *testing.T, store core.ObjectStore) {
	t.Helper()
	ctx := context.Background()

	if err := store.Put(ctx, "documents/d1/v1", strings.NewReader("hello")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var buf bytes.Buffer
	if err := store.Get(ctx, "documents/d1/v1", &buf); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if buf.String() != "hello" {
		t.Errorf("Get = %q, want %q", buf.String(), "hello")
	}

	// Re-put under the same key replaces the content.
	if err := store.Put(ctx, "documents/d1/v1", strings.NewReader("replaced")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	buf.Reset()
	if err := store.Get(ctx, "documents/d1/v1", &buf); err != nil {
		t.Fatalf("Get after replace failed: %v", err)
	}
	if buf.String() != "replaced" {
		t.Errorf("Get after replace = %q, want %q", buf.String(), "replaced")
	}

	if err := store.Get(ctx, "documents/d1/missing", &buf); !errors.Is(err, core.ErrObjectNotFound) {
		t.Errorf("Get of missing key = %v, want ErrObjectNotFound", err)
	}

	if err := store.Delete(ctx, "documents/d1/v1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Get(ctx, "documents/d1/v1", &buf); !errors.Is(err, core.ErrObjectNotFound) {
		t.Errorf("Get after delete = %v, want ErrObjectNotFound", err)
	}
	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "documents/d1/v1"); err != nil {
		t.Errorf("repeat Delete = %v, want nil", err)
	}

	if err := store.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup = %v, want nil", err)
	}
}

func TestMemoryStore(t *testing.T) {
	roundtrip(t, NewMemoryStore())
}

func TestFileSystemStore(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore failed: %v", err)
	}
	roundtrip(t, store)
}

func TestFileSystemStoreLaysOutKeyPaths(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore failed: %v", err)
	}
	if err := store.Put(context.Background(), "documents/d1/v1", strings.NewReader("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "documents", "d1", "v1"))
	if err != nil {
		t.Fatalf("reading stored file failed: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("stored file = %q, want %q", data, "x")
	}
}

func TestEncryptedStore(t *testing.T) {
	dir := t.TempDir()
	recipientPath := filepath.Join(dir, "docvault.pub")
	identityPath := filepath.Join(dir, "docvault.key")
	if err := GenerateKeys(recipientPath, identityPath); err != nil {
		t.Fatalf("GenerateKeys failed: %v", err)
	}

	inner := NewMemoryStore()
	roundtrip(t, NewEncryptedStore(inner, recipientPath, identityPath))
}

func TestEncryptedStoreCiphertextAtRest(t *testing.T) {
	dir := t.TempDir()
	recipientPath := filepath.Join(dir, "docvault.pub")
	identityPath := filepath.Join(dir, "docvault.key")
	if err := GenerateKeys(recipientPath, identityPath); err != nil {
		t.Fatalf("GenerateKeys failed: %v", err)
	}

	inner := NewMemoryStore()
	store := NewEncryptedStore(inner, recipientPath, identityPath)
	ctx := context.Background()

	plaintext := "confidential contents"
	if err := store.Put(ctx, "k", strings.NewReader(plaintext)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// The inner store must never see the plaintext.
	var raw bytes.Buffer
	if err := inner.Get(ctx, "k", &raw); err != nil {
		t.Fatalf("inner Get failed: %v", err)
	}
	if strings.Contains(raw.String(), plaintext) {
		t.Error("inner store holds plaintext")
	}

	var out bytes.Buffer
	if err := store.Get(ctx, "k", &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.String() != plaintext {
		t.Errorf("decrypted = %q, want %q", out.String(), plaintext)
	}
}

func TestGenerateKeysRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	recipientPath := filepath.Join(dir, "docvault.pub")
	identityPath := filepath.Join(dir, "docvault.key")

	if err := GenerateKeys(recipientPath, identityPath); err != nil {
		t.Fatalf("GenerateKeys failed: %v", err)
	}
	if err := GenerateKeys(recipientPath, identityPath); err == nil {
		t.Error("second GenerateKeys succeeded, want error")
	}
}
