//go:build integration

package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestDB_Connection(t *testing.T) {
	testDB := GetTestDB(t)

	var one int
	require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestCreateTable(t *testing.T) {
	testDB := GetTestDB(t)
	testDB.CreateTable(t, "helpers_probe",
		"CREATE TABLE helpers_probe (id int)",
		"INSERT INTO helpers_probe VALUES (1), (2)")

	var count int
	require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM helpers_probe").Scan(&count))
	assert.Equal(t, 2, count)
}
