// Package postgres loads frames from PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/logging"
	"github.com/ekaya-inc/ekaya-trane/pkg/retry"
)

// Loader reads tables through a pgx pool.
type Loader struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	ownedPool bool // true if we created the pool
}

// NewLoader connects to cfg, retrying while the server is unreachable.
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	connStr := buildConnectionString(cfg)
	logger = logger.Named("postgres")

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to postgres", zap.String("dsn", logging.SanitizeConnectionString(connStr)))
	return &Loader{pool: pool, logger: logger, ownedPool: true}, nil
}

// NewLoaderFromPool wraps an existing pool, which the loader will not close.
func NewLoaderFromPool(pool *pgxpool.Pool, logger *zap.Logger) *Loader {
	return &Loader{pool: pool, logger: logger.Named("postgres")}
}

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// buildQuery renders req as a parameterized SELECT.
func buildQuery(req datasource.LoadRequest) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(req.Columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, c := range req.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(pgx.Identifier{c}.Sanitize())
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
		sb.WriteString(pgx.Identifier{column}.Sanitize())
		v := req.Where[column]
		if frame.IsMissing(v) {
			sb.WriteString(" IS NULL")
			continue
		}
		args = append(args, v)
		fmt.Fprintf(&sb, " = $%d", len(args))
	}
	if req.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", req.Limit)
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

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	l.logger.Debug("Loaded frame", zap.String("table", req.Table), zap.Int("rows", len(data)))
	return datasource.BuildFrame(columns, data, req.Schema)
}

// normalizeValue maps pgx values without a frame counterpart onto frame scalars.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	}
	return v
}

// Close releases the pool if the loader created it.
func (l *Loader) Close() error {
	if l.ownedPool && l.pool != nil {
		l.pool.Close()
	}
	return nil
}

var _ datasource.FrameLoader = (*Loader)(nil)
