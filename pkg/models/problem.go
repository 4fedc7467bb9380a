package models

import (
	"encoding/json"
	"slices"
)

// ============================================================================
// Problem Types
// ============================================================================

// ProblemType classifies the target a problem predicts.
type ProblemType string

const (
	ProblemTypeClassification ProblemType = "classification"
	ProblemTypeRegression     ProblemType = "regression"
)

// ValidProblemTypes contains all valid problem type values.
var ValidProblemTypes = []ProblemType{
	ProblemTypeClassification,
	ProblemTypeRegression,
}

// IsValidProblemType checks if the given problem type is valid.
func IsValidProblemType(t ProblemType) bool {
	return slices.Contains(ValidProblemTypes, t)
}

// ============================================================================
// Persistence Documents
// ============================================================================

// ProblemDocument is the portable form of a problem.
// Description and ProblemType are informational and ignored when parsing.
type ProblemDocument struct {
	ID           string              `json:"id,omitempty"`
	Operations   []OperationDocument `json:"operations"`
	EntityColumn *string             `json:"entity_column"`
	WindowSize   string              `json:"window_size"`
	Metadata     MetadataDocument    `json:"metadata"`
	Reasoning    string              `json:"reasoning,omitempty"`
	ProblemType  ProblemType         `json:"problem_type,omitempty"`
	Description  string              `json:"description,omitempty"`
}

// OperationDocument is one operator of a problem pipeline.
// Column is nil for column-agnostic operators.
type OperationDocument struct {
	Category   string                     `json:"category"`
	Class      string                     `json:"class"`
	Column     *string                    `json:"column"`
	Parameters map[string]json.RawMessage `json:"parameters"`
}

// MetadataDocument is the portable form of a single-table schema.
type MetadataDocument struct {
	Columns    []ColumnDocument `json:"columns"`
	PrimaryKey string           `json:"primary_key,omitempty"`
	TimeIndex  string           `json:"time_index,omitempty"`
}

// ColumnDocument holds one column's logical type and user tags.
// Mandatory tags of the logical type are implied and not listed.
type ColumnDocument struct {
	Name        string   `json:"name"`
	LogicalType string   `json:"logical_type"`
	Tags        []string `json:"tags,omitempty"`
}
