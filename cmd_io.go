package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/logging"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
	"github.com/ekaya-inc/ekaya-trane/pkg/services"
)

// dataFlags select where a dataset is read from. --data reads CSV; --source reads a
// database configured in the config file.
type dataFlags struct {
	schema     string
	data       string
	source     string
	table      string
	primaryKey string
	timeIndex  string
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.schema, "schema", "", "schema document (YAML or JSON); inferred from the data when omitted")
	cmd.Flags().StringVar(&f.data, "data", "", "CSV file, or a directory with one <table>.csv per table")
	cmd.Flags().StringVar(&f.source, "source", "", "database source instead of --data: postgres or sqlserver")
	cmd.Flags().StringVar(&f.table, "table", "", "table to read; the target table of a multi-table schema")
	cmd.Flags().StringVar(&f.primaryKey, "primary-key", "", "primary key when inferring the schema")
	cmd.Flags().StringVar(&f.timeIndex, "time-index", "", "time index when inferring the schema")
}

func (f *dataFlags) hasData() bool {
	return f.data != "" || f.source != ""
}

// resolveSource maps the data flags onto a registered frame source.
func (a *app) resolveSource(f *dataFlags) (services.Source, error) {
	if f.data != "" && f.source != "" {
		return services.Source{}, fmt.Errorf("--data and --source are mutually exclusive")
	}
	switch strings.ToLower(f.source) {
	case "":
		if f.data == "" {
			return services.Source{}, fmt.Errorf("one of --data or --source is required")
		}
		return services.Source{Type: "csv", Config: map[string]any{"path": f.data}}, nil
	case "postgres", "postgresql":
		a.logger.Info("Using Postgres source",
			zap.String("dsn", logging.SanitizeConnectionString(a.cfg.Postgres.ConnectionString())))
		return services.Source{Type: "postgres", Config: a.cfg.Postgres.Map()}, nil
	case "sqlserver", "mssql":
		a.logger.Info("Using SQL Server source",
			zap.String("dsn", logging.SanitizeConnectionString(a.cfg.MSSQL.ConnectionString())))
		return services.Source{Type: "sqlserver", Config: a.cfg.MSSQL.Map()}, nil
	}
	return services.Source{}, fmt.Errorf("unknown source %q", f.source)
}

// readSchema parses --schema, or returns nil when it was not given.
func (f *dataFlags) readSchema() (*metadata.Schema, error) {
	if f.schema == "" {
		return nil, nil
	}
	return metadata.ReadFile(f.schema)
}

// loadDataset reads the data named by f. schema may be nil, in which case a single-table
// schema is inferred from the raw data.
func (a *app) loadDataset(ctx context.Context, f *dataFlags, schema *metadata.Schema) (*services.Dataset, error) {
	source, err := a.resolveSource(f)
	if err != nil {
		return nil, err
	}
	if schema != nil {
		if schema.Multi != nil && f.table == "" {
			return nil, fmt.Errorf("--table is required with a multi-table schema")
		}
		return services.NewDatasetService(a.logger).Load(ctx, schema, source, f.table)
	}

	loader, err := datasource.NewLoader(ctx, source.Type, source.Config, a.logger)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	raw, err := loader.LoadFrame(ctx, datasource.LoadRequest{Table: f.table})
	if err != nil {
		return nil, err
	}
	md, err := metadata.InferSingleTable(raw, f.primaryKey, f.timeIndex, a.cfg.Inference.Config())
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	typed, err := md.CoerceFrame(raw)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Inferred schema",
		zap.Int("columns", len(md.Columns())),
		zap.String("primary_key", md.PrimaryKey()),
		zap.String("time_index", md.TimeIndex()))
	return &services.Dataset{Table: f.table, Schema: md, Frame: typed}, nil
}

// readProblems decodes a problems file: a JSON array of problem documents or a single one.
func readProblems(r io.Reader) ([]*problem.Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		p, err := problem.Parse(data)
		if err != nil {
			return nil, err
		}
		return []*problem.Problem{p}, nil
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDocument, err)
	}
	problems := make([]*problem.Problem, 0, len(docs))
	for i, doc := range docs {
		p, err := problem.Parse(doc)
		if err != nil {
			return nil, fmt.Errorf("problem %d: %w", i, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

func readProblemsFile(path string) ([]*problem.Problem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readProblems(file)
}

// writeProblems encodes problems as an indented JSON array.
func writeProblems(w io.Writer, problems []*problem.Problem) error {
	if problems == nil {
		problems = []*problem.Problem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(problems)
}

// createOutput opens path for writing, or returns stdout for "" and "-".
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}
