package blob

import (
	"context"
	"fmt"

	"docvault/internal/config"
	"docvault/internal/core"
)

// NewStoreFromConfig creates an ObjectStore based on the object store
// config type, wrapping it with encryption when that is enabled.
func NewStoreFromConfig(ctx context.Context, cfg *config.Config) (core.ObjectStore, error) {
	store, err := newBaseStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Encryption.Enabled {
		if cfg.Encryption.RecipientPath == "" || cfg.Encryption.IdentityPath == "" {
			return nil, fmt.Errorf("encryption requires recipient_path and identity_path to be set")
		}
		store = NewEncryptedStore(store, cfg.Encryption.RecipientPath, cfg.Encryption.IdentityPath)
	}
	return store, nil
}

func newBaseStore(ctx context.Context, cfg *config.Config) (core.ObjectStore, error) {
	oc := cfg.ObjectStore
	switch oc.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		if oc.S3Bucket == "" {
			return nil, fmt.Errorf("s3 object store requires s3_bucket to be set")
		}
		return NewS3Store(ctx, S3Config{
			Bucket:    oc.S3Bucket,
			Region:    oc.S3Region,
			Endpoint:  oc.S3Endpoint,
			AccessKey: cfg.S3AccessKey(),
			SecretKey: cfg.S3SecretKey(),
		})
	case "filesystem":
		if oc.FSRoot == "" {
			return nil, fmt.Errorf("filesystem object store requires fs_root to be set")
		}
		return NewFileSystemStore(oc.FSRoot)
	default:
		return nil, fmt.Errorf("unknown object store type: %q", oc.Type)
	}
}
