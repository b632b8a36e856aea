// Package export writes the review artifacts of a matching run: the unmatched
// players CSV, the mapping table JSON and a markdown validation report.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-player-mapper/internal/domain/playermap"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

const (
	UnmatchedFile = "missing_mappings.csv"
	MappingsFile  = "player_mapping_table.json"
	ReportFile    = "mapping_report.md"
)

type FileExporter struct {
	dir    string
	logger *logging.Logger
}

func NewFileExporter(dir string, logger *logging.Logger) *FileExporter {
	if logger == nil {
		logger = logging.Default()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	return &FileExporter{dir: dir, logger: logger}
}

// WriteUnmatched writes unmatched primary records for manual review. An empty
// set removes the file left by an earlier run and returns an empty path.
func (e *FileExporter) WriteUnmatched(ctx context.Context, records []playermap.Record) (string, error) {
	if len(records) == 0 {
		path := filepath.Join(e.dir, UnmatchedFile)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove stale %s: %w", path, err)
		}
		return "", nil
	}

	extraKeys := make([]string, 0)
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record.Extra {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			extraKeys = append(extraKeys, key)
		}
	}
	slices.Sort(extraKeys)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	w := csv.NewWriter(buf)
	if err := w.Write(append([]string{"id", "name", "team"}, extraKeys...)); err != nil {
		return "", fmt.Errorf("write unmatched header: %w", err)
	}
	for _, record := range records {
		row := make([]string, 0, 3+len(extraKeys))
		row = append(row, record.ID, record.Name, record.Team)
		for _, key := range extraKeys {
			row = append(row, formatCell(record.Extra[key]))
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write unmatched row id=%s: %w", record.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush unmatched csv: %w", err)
	}

	path, err := e.write(UnmatchedFile, buf.B)
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "exported unmatched players", "count", len(records), "path", path)
	return path, nil
}

// WriteMappings writes the mapping table as a JSON array.
func (e *FileExporter) WriteMappings(ctx context.Context, mappings []playermap.Mapping) (string, error) {
	if mappings == nil {
		mappings = []playermap.Mapping{}
	}
	raw, err := sonic.ConfigStd.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode mapping table: %w", err)
	}

	path, err := e.write(MappingsFile, append(raw, '\n'))
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "exported mapping table", "count", len(mappings), "path", path)
	return path, nil
}

func (e *FileExporter) WriteReport(ctx context.Context, report playermap.Report) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := reportTemplate.Execute(buf, report); err != nil {
		return "", fmt.Errorf("render mapping report: %w", err)
	}

	path, err := e.write(ReportFile, buf.B)
	if err != nil {
		return "", err
	}
	e.logger.InfoContext(ctx, "exported mapping report", "path", path)
	return path, nil
}

func (e *FileExporter) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", e.dir, err)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
