package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
)

const transactionsCSV = `id,customer_id,date,amount
1,c1,2024-05-01,10
2,c1,2024-05-02,20
3,c1,2024-05-03,30
4,c2,2024-05-01,5
`

const transactionsSchema = `
columns:
  id: Integer
  customer_id: [Categorical, [index]]
  date: Datetime
  amount: Double
primary_key: id
time_index: date
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateLabelDescribe(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "transactions.csv", transactionsCSV)
	schema := writeFile(t, dir, "schema.yaml", transactionsSchema)
	problemsPath := filepath.Join(dir, "problems.json")

	_, err := execute(t, "generate",
		"--schema", schema,
		"--entity", "customer_id",
		"--window", "2d",
		"--filters", "AllFilterOp",
		"--transformations", "IdentityOp",
		"--aggregations", "CountAggregationOp",
		"--out", problemsPath)
	require.NoError(t, err)

	problems, err := readProblemsFile(problemsPath)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	id := problems[0].ID().String()

	out, err := execute(t, "describe", "--problems", problemsPath)
	require.NoError(t, err)
	assert.Equal(t, id+"\tregression\tFor each customer_id predict the number of records in next 2 days\n", out)

	labelsDir := filepath.Join(dir, "labels")
	out, err = execute(t, "label", "--problems", problemsPath, "--data", data, "--out-dir", labelsDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, id+"\t3\t"))

	labels, err := os.ReadFile(filepath.Join(labelsDir, id+".csv"))
	require.NoError(t, err)
	assert.Equal(t, "customer_id,cutoff_time,target\n"+
		"c1,2024-05-01T00:00:00Z,2\n"+
		"c1,2024-05-03T00:00:00Z,1\n"+
		"c2,2024-05-01T00:00:00Z,1\n", string(labels))
}

func TestGenerate_Thresholds(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "transactions.csv", transactionsCSV)
	schema := writeFile(t, dir, "schema.yaml", transactionsSchema)

	out, err := execute(t, "generate",
		"--schema", schema,
		"--data", data,
		"--entity", "customer_id",
		"--window", "48h",
		"--thresholds",
		"--filters", "GreaterFilterOp",
		"--transformations", "IdentityOp",
		"--aggregations", "SumAggregationOp")
	require.NoError(t, err)

	problems, err := readProblems(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.True(t, problems[0].HasParametersSet())
	assert.Equal(t, "amount", problems[0].Filter.ColumnName())
	_, ok := problems[0].Filter.Parameter(ops.ParamThreshold)
	assert.True(t, ok)
}

func TestLabel_UnsetThresholdFails(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "transactions.csv", transactionsCSV)
	schema := writeFile(t, dir, "schema.yaml", transactionsSchema)
	problemsPath := filepath.Join(dir, "problems.json")

	_, err := execute(t, "generate",
		"--schema", schema,
		"--entity", "customer_id",
		"--filters", "GreaterFilterOp",
		"--transformations", "IdentityOp",
		"--aggregations", "SumAggregationOp",
		"-o", problemsPath)
	require.NoError(t, err)

	out, err := execute(t, "label", "--problems", problemsPath, "--data", data, "--out-dir", filepath.Join(dir, "labels"))
	assert.ErrorContains(t, err, "1 of 1 problems could not be labeled")
	assert.Contains(t, out, "FAILED")
}

func TestGenerate_InfersSchema(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "transactions.csv", transactionsCSV)

	out, err := execute(t, "generate",
		"--data", data,
		"--primary-key", "id",
		"--time-index", "date",
		"--entity", "customer_id",
		"--filters", "AllFilterOp",
		"--transformations", "IdentityOp",
		"--aggregations", "CountAggregationOp")
	require.NoError(t, err)

	problems, err := readProblems(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "date", problems[0].Metadata.TimeIndex())
	assert.Equal(t, "id", problems[0].Metadata.PrimaryKey())
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.yaml", transactionsSchema)

	_, err := execute(t, "generate", "--schema", schema, "--entity", "customer_id", "--aggregations", "MedianAggregationOp")
	assert.ErrorIs(t, err, apperrors.ErrUnknownOperator)

	_, err = execute(t, "generate", "--schema", schema, "--entity", "customer_id", "--thresholds")
	assert.ErrorContains(t, err, "--data or --source is required")

	_, err = execute(t, "generate", "--schema", schema, "--entity", "customer_id", "--window", "soon")
	assert.Error(t, err)

	_, err = execute(t, "generate", "--schema", schema)
	assert.ErrorContains(t, err, "entity")

	_, err = execute(t, "generate", "--entity", "customer_id", "--data", "a.csv", "--source", "postgres")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestSources(t *testing.T) {
	out, err := execute(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "csv")
}

func TestReadProblems(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.yaml", transactionsSchema)
	out, err := execute(t, "generate", "--schema", schema, "--entity", "customer_id",
		"--filters", "AllFilterOp", "--transformations", "IdentityOp", "--aggregations", "CountAggregationOp,ExistsAggregationOp")
	require.NoError(t, err)

	problems, err := readProblems(strings.NewReader(out))
	require.NoError(t, err)
	// Exists is restricted under All
	require.Len(t, problems, 1)

	single, err := problems[0].MarshalJSON()
	require.NoError(t, err)
	again, err := readProblems(bytes.NewReader(single))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.True(t, problems[0].Equal(again[0]))

	empty, err := readProblems(strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = readProblems(strings.NewReader("not json"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidDocument)
}
