package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_LOG_LEVEL", "error")
	t.Setenv("DB_URL", "")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("MAPPING_FILE", filepath.Join(dir, "player_mapping.json"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "out"))
	t.Setenv("METRICS_TEXTFILE", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddMappingCommand_PersistsOverlay(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "add-mapping", "328", "1250")
	if err != nil {
		t.Fatalf("add-mapping: %v (%s)", err, out)
	}
	if !strings.Contains(out, "mapped 328 -> 1250") {
		t.Fatalf("unexpected output: %s", out)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "player_mapping.json"))
	if err != nil {
		t.Fatalf("read overlay: %v", err)
	}
	var got map[string]string
	if err := sonic.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode overlay: %v", err)
	}
	if got["328"] != "1250" {
		t.Fatalf("unexpected overlay: %v", got)
	}

	out, err = execute(t, "mappings", "--manual")
	if err != nil {
		t.Fatalf("mappings --manual: %v", err)
	}
	if !strings.Contains(out, `"328": "1250"`) {
		t.Fatalf("expected overlay in output, got %s", out)
	}
}

func TestAddMappingCommand_WriteFailureIsAWarning(t *testing.T) {
	dir := setupEnv(t)
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	t.Setenv("MAPPING_FILE", filepath.Join(blocker, "player_mapping.json"))

	out, err := execute(t, "add-mapping", "328", "1250")
	if err != nil {
		t.Fatalf("expected a warning, not a failure: %v", err)
	}
	if !strings.Contains(out, "warning: mapped 328 -> 1250 but could not save") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestAddMappingCommand_RejectsNonNumericID(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "add-mapping", "salah", "1250"); err == nil {
		t.Fatalf("expected error for non-numeric fpl id")
	}
	if _, err := execute(t, "add-mapping", "328"); err == nil {
		t.Fatalf("expected error for missing argument")
	}
}

func TestMappingsCommand_EmptyMemoryStore(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "mappings")
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty json array, got %q", out)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, usecase.CollectResult{
		Primary: usecase.SourceTable{Records: make([]playermap.Record, 4)},
		Result: playermap.Result{
			Mappings:  []playermap.Mapping{{PrimaryID: "1", MatchType: playermap.MatchTypeManual}},
			Unmatched: make([]playermap.Record, 3),
		},
		Report:        playermap.Report{ManualCount: 1},
		UnpairedTeams: []string{"Sunderland"},
		LowMatchRate:  true,
		Files:         []string{"out/b.json", "out/a.csv"},
	})

	got := buf.String()
	for _, want := range []string{
		"mapped:            1 (manual 1, automated 0)",
		"match rate:        25.0%",
		"unpaired teams:    [Sunderland]",
		"warning: match rate below",
		"wrote out/a.csv\nwrote out/b.json",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}
