package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigRoundtrip(t *testing.T) {
	cfg := NewConfig("/var/lib/docvault")
	cfg.Database = DatabaseConfig{Type: "postgres", DSN: "postgres://localhost/docvault"}
	cfg.ObjectStore = ObjectStoreConfig{
		Type:       "s3",
		S3Bucket:   "docvault-content",
		S3Region:   "eu-central-1",
		S3Endpoint: "http://localhost:9000",
	}
	cfg.Encryption.Enabled = true
	cfg.Batch = BatchConfig{Workers: 8, ItemTimeoutSecs: 30}
	cfg.Sync = SyncConfig{QueueSize: 256}

	m := &Manager{}
	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, cfg)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("/home/user/.docvault")

	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Database.DataDir != filepath.Join("/home/user/.docvault", "db") {
		t.Errorf("Database.DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.ObjectStore.Type != "filesystem" {
		t.Errorf("ObjectStore.Type = %q, want filesystem", cfg.ObjectStore.Type)
	}
	if cfg.Encryption.Enabled {
		t.Error("Encryption.Enabled defaults to true, want false")
	}
}

func TestReadUnknownType(t *testing.T) {
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader("[database]\ntype = \"oracle\"\n"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	// The type tag is validated by the factories, not the decoder.
	if cfg.Database.Type != "oracle" {
		t.Errorf("Database.Type = %q, want oracle", cfg.Database.Type)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "docvault.toml")
	cfg := NewConfig(t.TempDir())

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(path, cfg); err == nil {
		t.Error("second Init succeeded, want error")
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile failed: %v", err)
	}
	if got.Database.Type != cfg.Database.Type || got.BaseDir != cfg.BaseDir {
		t.Errorf("read config = %+v, want %+v", got, cfg)
	}
}

func TestEnvOverridesDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docvault.toml")
	cfg := NewConfig(t.TempDir())
	cfg.Database = DatabaseConfig{Type: "postgres", DSN: "postgres://file/db"}
	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	t.Setenv("DOCVAULT_DB_DSN", "postgres://env/db")
	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile failed: %v", err)
	}
	if got.Database.DSN != "postgres://env/db" {
		t.Errorf("DSN = %q, want env override", got.Database.DSN)
	}
}
