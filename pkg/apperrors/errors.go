package apperrors

import "errors"

// Structural errors: bad inputs to constructors. Raised immediately; no partial state.
var (
	ErrUnknownMLType       = errors.New("unknown ml type")
	ErrUnknownTable        = errors.New("unknown table")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrInvalidRelationship = errors.New("invalid relationship")
	ErrCyclicSchema        = errors.New("relationship graph contains a cycle")
	ErrUnknownOperator     = errors.New("unknown operator")
	ErrInvalidDocument     = errors.New("invalid problem document")
	ErrInvalidWindow       = errors.New("window size must be positive")
)

// Parameter misuse on operators and problems.
var (
	ErrParametersNotSet     = errors.New("required parameters not set")
	ErrParametersAlreadySet = errors.New("parameters already set")
	ErrInvalidParameter     = errors.New("invalid parameter")
)

// Runtime failures raised by the label engine and frame sources.
var (
	ErrInvalidTimeIndex       = errors.New("time index is not a datetime column")
	ErrNotImplemented         = errors.New("not implemented")
	ErrUnsupportedCardinality = errors.New("unsupported join cardinality")
	ErrUnsafeValue            = errors.New("value rejected by injection check")
)
