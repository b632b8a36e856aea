package manualmapping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "manual_mappings.json"), logging.NewNop())

	if got := store.Load(); len(got) != 0 {
		t.Fatalf("expected empty overlay, got %v", got)
	}
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual_mappings.json")
	if err := os.WriteFile(path, []byte(`{"1": "u1",`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := Open(path, logging.NewNop())
	if got := store.Load(); len(got) != 0 {
		t.Fatalf("expected empty overlay for corrupt file, got %v", got)
	}
}

func TestOpen_NonObjectStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual_mappings.json")
	if err := os.WriteFile(path, []byte(`["1", "u1"]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := Open(path, logging.NewNop())
	if got := store.Load(); len(got) != 0 {
		t.Fatalf("expected empty overlay for array document, got %v", got)
	}
}

func TestOpen_CoercesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual_mappings.json")
	if err := os.WriteFile(path, []byte(`{"1": "u1", "2": 8260, "3": null}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got := Open(path, logging.NewNop()).Load()
	if got["1"] != "u1" {
		t.Fatalf("unexpected entry 1: %q", got["1"])
	}
	if got["2"] != "8260" {
		t.Fatalf("unexpected entry 2: %q", got["2"])
	}
	if _, ok := got["3"]; ok {
		t.Fatalf("expected null entry to be skipped")
	}
}

func TestAdd_PersistsFullSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manual_mappings.json")
	store := Open(path, logging.NewNop())
	ctx := context.Background()

	if err := store.Add(ctx, 1, "u1"); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := store.Add(ctx, 2, "u2"); err != nil {
		t.Fatalf("add second: %v", err)
	}
	if err := store.Add(ctx, 1, "u9"); err != nil {
		t.Fatalf("overwrite first: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	var persisted map[string]string
	if err := sonic.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("decode persisted file: %v", err)
	}
	if len(persisted) != 2 || persisted["1"] != "u9" || persisted["2"] != "u2" {
		t.Fatalf("unexpected persisted overlay: %v", persisted)
	}

	reopened := Open(path, logging.NewNop()).Load()
	if reopened["1"] != "u9" {
		t.Fatalf("expected overwrite to survive reopen, got %v", reopened)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestAdd_WriteFailureKeepsInMemoryEntry(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	store := Open(filepath.Join(blocker, "manual_mappings.json"), logging.NewNop())
	err := store.Add(context.Background(), 7, "u7")
	if !errors.Is(err, usecase.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if got := store.Load(); got["7"] != "u7" {
		t.Fatalf("expected in-memory entry after failed write, got %v", got)
	}
}

func TestLoad_ReturnsCopy(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "manual_mappings.json"), logging.NewNop())
	if err := store.Add(context.Background(), 1, "u1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	snapshot := store.Load()
	snapshot["1"] = "tampered"

	if got := store.Load(); got["1"] != "u1" {
		t.Fatalf("expected store to be unaffected by caller mutation, got %v", got)
	}
}

func TestCorruptOverlayFallsBackToAutomatedMatching(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual_mappings.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	service := usecase.NewPlayerMappingService(Open(path, logging.NewNop()), logging.NewNop())
	result := service.MapPlayers(context.Background(),
		[]playermap.Record{{ID: "1", Name: "Declan Rice", Team: "Arsenal"}},
		[]playermap.Record{{ID: "u1", Name: "Declan Rice", Team: "Arsenal"}},
		nil,
		usecase.MatchOptions{},
	)

	if len(result.Mappings) != 1 || result.Mappings[0].MatchType != playermap.MatchTypeAutomated {
		t.Fatalf("expected automated match with empty overlay, got %+v", result.Mappings)
	}
}
