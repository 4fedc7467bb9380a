// Package mssql loads frames from SQL Server through database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/logging"
	"github.com/ekaya-inc/ekaya-trane/pkg/retry"
)

// Loader reads tables through a database/sql handle.
type Loader struct {
	db      *sql.DB
	logger  *zap.Logger
	ownedDB bool
}

// NewLoader opens and pings a SQL Server connection, retrying while it is unreachable.
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	connStr := buildConnectionString(cfg)
	logger = logger.Named("mssql")

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %s", logging.SanitizeError(err))
	}
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to sqlserver", zap.String("dsn", logging.SanitizeConnectionString(connStr)))
	return &Loader{db: db, logger: logger, ownedDB: true}, nil
}

// quoteName escapes an identifier the way QUOTENAME does.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = quoteName(p)
	}
	return strings.Join(parts, ".")
}

// buildQuery renders req as a parameterized SELECT with @pN placeholders.
func buildQuery(req datasource.LoadRequest) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if req.Limit > 0 {
		fmt.Fprintf(&sb, "TOP (%d) ", req.Limit)
	}
	if len(req.Columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, c := range req.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteName(c))
		}
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quoteTable(req.Table))

	var args []any
	for i, column := range datasource.SortedKeys(req.Where) {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(quoteName(column))
		v := req.Where[column]
		if frame.IsMissing(v) {
			sb.WriteString(" IS NULL")
			continue
		}
		args = append(args, sql.Named("p"+strconv.Itoa(len(args)+1), v))
		fmt.Fprintf(&sb, " = @p%d", len(args))
	}
	return sb.String(), args
}

// LoadFrame runs req and returns its rows as a frame.
func (l *Loader) LoadFrame(ctx context.Context, req datasource.LoadRequest) (*frame.Frame, error) {
	if err := datasource.ScreenWhere(req.Where); err != nil {
		return nil, err
	}
	query, args := buildQuery(req)
	l.logger.Debug("Loading frame", zap.String("query", logging.SanitizeQuery(query)))

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if values[i], err = normalizeValue(types[i].DatabaseTypeName(), v); err != nil {
				return nil, fmt.Errorf("column %q: %w", columns[i], err)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	l.logger.Debug("Loaded frame", zap.String("table", req.Table), zap.Int("rows", len(data)))
	return datasource.BuildFrame(columns, data, req.Schema)
}

// normalizeValue converts driver byte slices into frame scalars by column type.
func normalizeValue(dbType string, v any) (any, error) {
	b, ok := v.([]byte)
	if !ok {
		return v, nil
	}
	switch dbType {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return strconv.ParseFloat(string(b), 64)
	case "UNIQUEIDENTIFIER":
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return nil, err
		}
		return id.String(), nil
	}
	return string(b), nil
}

// Close releases the connection if the loader opened it.
func (l *Loader) Close() error {
	if l.ownedDB && l.db != nil {
		return l.db.Close()
	}
	return nil
}

var _ datasource.FrameLoader = (*Loader)(nil)
