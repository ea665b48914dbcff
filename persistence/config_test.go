package persistence_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/zuriscript/signalstory-sub000/persistence"
)

func TestDefaultConfig(t *testing.T) {
	cfg := persistence.DefaultConfig()

	if cfg.Driver != "" {
		t.Errorf("Driver = %q, want empty", cfg.Driver)
	}
	if cfg.Prefix != "signalstory/" {
		t.Errorf("Prefix = %q, want signalstory/", cfg.Prefix)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := persistence.DefaultConfig()
	cfg.Merge(&persistence.Config{Driver: "badger", InMemory: true})

	if cfg.Driver != "badger" || !cfg.InMemory {
		t.Errorf("merged = %+v", cfg)
	}
	if cfg.Prefix != "signalstory/" {
		t.Errorf("Prefix = %q, want preserved default", cfg.Prefix)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     persistence.Config
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: persistence.Config{}, wantNil: true},
		{name: "memory", cfg: persistence.Config{Driver: persistence.DriverMemory}},
		{name: "file", cfg: persistence.Config{Driver: persistence.DriverFile, Path: filepath.Join(dir, "files")}},
		{name: "file without path", cfg: persistence.Config{Driver: persistence.DriverFile}, wantErr: true},
		{name: "badger", cfg: persistence.Config{Driver: persistence.DriverBadger, InMemory: true}},
		{name: "badger without path", cfg: persistence.Config{Driver: persistence.DriverBadger}, wantErr: true},
		{name: "sqlite", cfg: persistence.Config{Driver: persistence.DriverSQLite, Path: filepath.Join(dir, "s.db")}},
		{name: "registered", cfg: persistence.Config{Driver: "shared"}},
		{name: "unknown", cfg: persistence.Config{Driver: "nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := persistence.Open(&tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Open() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if tt.wantNil {
				if s != nil {
					t.Errorf("Open() = %v, want nil", s)
				}
				return
			}
			defer persistence.Close(s)

			ctx := context.Background()
			if err := s.Save(ctx, persistence.Entry{Key: "probe", Value: []byte("1")}); err != nil {
				t.Errorf("Save() error = %v", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	custom := persistence.NewMemoryStore()
	persistence.RegisterStore("custom-test", custom)

	got, err := persistence.GetStore("custom-test")
	if err != nil || got != custom {
		t.Errorf("GetStore() = %v, %v", got, err)
	}

	if _, err := persistence.GetStore("absent"); !errors.Is(err, persistence.ErrUnknownStore) {
		t.Errorf("GetStore(absent) error = %v, want ErrUnknownStore", err)
	}
}
