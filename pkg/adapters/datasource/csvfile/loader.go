package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// Config locates the CSV data. Path is either a single file or a directory holding one
// <table>.csv file per table.
type Config struct {
	Path      string
	Delimiter rune
}

// FromMap builds a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Delimiter: ','}
	path, _ := config["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cfg.Path = path
	if d, ok := config["delimiter"].(string); ok && d != "" {
		cfg.Delimiter = []rune(d)[0]
	}
	return cfg, nil
}

// Loader reads tables from CSV files. Every cell is loaded as a string and empty cells are
// missing; a request schema coerces the columns to their ML types.
type Loader struct {
	config *Config
	isDir  bool
	logger *zap.Logger
}

var _ datasource.FrameLoader = (*Loader)(nil)

// NewLoader checks that the configured path exists.
func NewLoader(cfg *Config, logger *zap.Logger) (*Loader, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv source: %w", err)
	}
	return &Loader{config: cfg, isDir: info.IsDir(), logger: logger.Named("csv")}, nil
}

func (l *Loader) fileFor(table string) string {
	if !l.isDir {
		return l.config.Path
	}
	return filepath.Join(l.config.Path, table+".csv")
}

// LoadFrame reads the table file and applies the request's column, equality and limit filters.
func (l *Loader) LoadFrame(ctx context.Context, req datasource.LoadRequest) (*frame.Frame, error) {
	if l.isDir && req.Table == "" {
		return nil, fmt.Errorf("table is required when reading from a directory")
	}
	path := l.fileFor(req.Table)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	columns, rows, err := l.read(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	l.logger.Debug("Read CSV table",
		zap.String("path", path),
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(rows)))

	f, err := datasource.BuildFrame(columns, rows, req.Schema)
	if err != nil {
		return nil, err
	}
	if f, err = applyWhere(f, req.Where); err != nil {
		return nil, err
	}
	if len(req.Columns) > 0 {
		if f, err = f.Select(req.Columns...); err != nil {
			return nil, err
		}
	}
	if req.Limit > 0 && f.Len() > req.Limit {
		idx := make([]int, req.Limit)
		for i := range idx {
			idx[i] = i
		}
		f = f.Take(idx)
	}
	return f, nil
}

func (l *Loader) read(ctx context.Context, r io.Reader) ([]string, [][]any, error) {
	reader := csv.NewReader(r)
	reader.Comma = l.config.Delimiter

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("missing header row")
		}
		return nil, nil, err
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]any
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// applyWhere keeps rows matching every equality. A nil value matches missing cells; other
// values match on equality or on their formatted text, so a string 5 matches a raw "5".
func applyWhere(f *frame.Frame, where map[string]any) (*frame.Frame, error) {
	if len(where) == 0 {
		return f, nil
	}
	keys := datasource.SortedKeys(where)
	series := make([]*frame.Series, len(keys))
	for i, k := range keys {
		s, ok := f.Column(k)
		if !ok {
			return nil, fmt.Errorf("unknown column %q in filter", k)
		}
		series[i] = s
	}
	return f.Filter(func(row int) bool {
		for i, k := range keys {
			want := where[k]
			got := series[i].Value(row)
			if frame.IsMissing(want) {
				if !frame.IsMissing(got) {
					return false
				}
				continue
			}
			if frame.IsMissing(got) {
				return false
			}
			if !frame.Equal(got, want) && frame.FormatValue(got) != frame.FormatValue(want) {
				return false
			}
		}
		return true
	}), nil
}

// Close is a no-op; files are opened per request.
func (l *Loader) Close() error {
	return nil
}
