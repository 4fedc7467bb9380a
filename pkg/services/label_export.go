package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// WriteLabelsCSV writes a label table with a header row. Missing targets are empty cells and
// cutoff times are RFC 3339.
func WriteLabelsCSV(w io.Writer, labels *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(labels.Columns()); err != nil {
		return err
	}
	series := labels.Series()
	record := make([]string, len(series))
	for row := 0; row < labels.Len(); row++ {
		for j, s := range series {
			v := s.Value(row)
			if ts, ok := v.(time.Time); ok {
				record[j] = ts.UTC().Format(time.RFC3339)
				continue
			}
			record[j] = frame.FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportLabels writes each successful result to <dir>/<problem id>.csv and returns the paths
// written, in result order. Failed results are skipped.
func ExportLabels(dir string, results []LabelResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	var paths []string
	for _, r := range results {
		if r.Err != nil || r.Labels == nil {
			continue
		}
		path := filepath.Join(dir, r.ProblemID.String()+".csv")
		if err := writeLabelsFile(path, r.Labels); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeLabelsFile(path string, labels *frame.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if err := WriteLabelsCSV(file, labels); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
