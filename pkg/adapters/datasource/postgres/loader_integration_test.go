//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
	"github.com/ekaya-inc/ekaya-trane/pkg/testhelpers"
)

func TestLoadFrame_Postgres(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	db.CreateTable(t, "txn_load",
		`CREATE TABLE txn_load (id int, customer_id int, date timestamptz, amount numeric(10,2), card text)`,
		`INSERT INTO txn_load VALUES
			(1, 10, '2024-05-01T00:00:00Z', 12.50, 'visa'),
			(2, 10, '2024-05-02T00:00:00Z', 7.25, 'amex'),
			(3, 11, '2024-05-02T00:00:00Z', NULL, 'visa')`)

	loader := NewLoaderFromPool(db.Pool, zap.NewNop())
	defer loader.Close()

	md, err := metadata.NewSingleTable([]metadata.Column{
		{Name: "id", Type: mltypes.New(mltypes.Integer)},
		{Name: "customer_id", Type: mltypes.New(mltypes.Integer, mltypes.TagIndex)},
		{Name: "date", Type: mltypes.New(mltypes.Datetime)},
		{Name: "amount", Type: mltypes.New(mltypes.Double)},
		{Name: "card", Type: mltypes.New(mltypes.Categorical)},
	}, "id", "date")
	require.NoError(t, err)

	f, err := loader.LoadFrame(context.Background(), datasource.LoadRequest{Table: "txn_load", Schema: md})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer_id", "date", "amount", "card"}, f.Columns())
	assert.Equal(t, 3, f.Len())

	amount, _ := f.Column("amount")
	assert.Equal(t, frame.Float64, amount.DType())
	assert.Equal(t, []any{12.5, 7.25, nil}, amount.Values())

	date, _ := f.Column("date")
	assert.True(t, date.Value(0).(time.Time).Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	visa, err := loader.LoadFrame(context.Background(), datasource.LoadRequest{
		Table:   "txn_load",
		Columns: []string{"id"},
		Where:   map[string]any{"card": "visa"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, visa.Len())
}

func TestNewLoader_Postgres(t *testing.T) {
	db := testhelpers.GetTestDB(t)

	cfg, err := FromMap(db.Source.Map())
	require.NoError(t, err)
	assert.Equal(t, "disable", cfg.SSLMode)

	loader, err := NewLoader(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, loader.Close())
}
