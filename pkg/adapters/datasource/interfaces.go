package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
)

// FrameLoader reads one table of a dataset into a frame.
// Each implementation owns its connection and must be closed when done.
type FrameLoader interface {
	// LoadFrame runs req and returns its rows.
	LoadFrame(ctx context.Context, req LoadRequest) (*frame.Frame, error)

	// Close releases the underlying connection or file.
	Close() error
}

// LoadRequest selects rows of a table.
type LoadRequest struct {
	// Table may be schema-qualified ("sales.transactions").
	Table string
	// Columns defaults to every column of the table.
	Columns []string
	// Where keeps rows whose column equals the given value. Values are bound as query
	// parameters; string values are screened for injection first.
	Where map[string]any
	// Limit caps the number of rows; zero means no limit.
	Limit int
	// Schema, when set, coerces the loaded columns to their ML types.
	Schema *metadata.SingleTable
}
