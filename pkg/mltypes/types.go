// Package mltypes describes how a column may be used by operators: a logical type
// (Integer, Categorical, Datetime, ...) plus a set of semantic tags.
package mltypes

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// LogicalType is one entry of the type catalog. Logical types are compared by identity.
type LogicalType struct {
	name          string
	dtype         frame.DType
	mandatoryTags []string
	infer         func(s *frame.Series, cfg InferenceConfig) bool
}

func (l *LogicalType) Name() string       { return l.name }
func (l *LogicalType) String() string     { return l.name }
func (l *LogicalType) DType() frame.DType { return l.dtype }

// MandatoryTags returns the tags every column of this type carries.
func (l *LogicalType) MandatoryTags() TagSet {
	return NewTagSet(l.mandatoryTags...)
}

// Infer reports whether the series is likely an instance of this type.
func (l *LogicalType) Infer(s *frame.Series, cfg InferenceConfig) bool {
	if l.infer == nil {
		return false
	}
	return l.infer(s, cfg)
}

// Any is the unparameterized sentinel: an operator whose input is Any accepts every column.
var Any = &LogicalType{name: "MLType", dtype: frame.Object}

var (
	Boolean = &LogicalType{name: "Boolean", dtype: frame.Bool, infer: inferBoolean}
	Integer = &LogicalType{name: "Integer", dtype: frame.Int64,
		mandatoryTags: []string{TagNumeric}, infer: inferInteger}
	Double = &LogicalType{name: "Double", dtype: frame.Float64,
		mandatoryTags: []string{TagNumeric}, infer: inferDouble}
	Datetime   = &LogicalType{name: "Datetime", dtype: frame.Datetime, infer: inferDatetime}
	PostalCode = &LogicalType{name: "PostalCode", dtype: frame.Category,
		mandatoryTags: []string{TagCategory}, infer: inferPostalCode}
	EmailAddress = &LogicalType{name: "EmailAddress", dtype: frame.String, infer: inferEmail}
	URL          = &LogicalType{name: "URL", dtype: frame.String, infer: inferURL}
	Categorical  = &LogicalType{name: "Categorical", dtype: frame.Category,
		mandatoryTags: []string{TagCategory}, infer: inferCategorical}
	Ordinal = &LogicalType{name: "Ordinal", dtype: frame.Category,
		mandatoryTags: []string{TagCategory}}
	NaturalLanguage = &LogicalType{name: "NaturalLanguage", dtype: frame.String, infer: inferNaturalLanguage}
	Unknown         = &LogicalType{name: "Unknown", dtype: frame.String,
		infer: func(*frame.Series, InferenceConfig) bool { return true }}
)

// Catalog returns the logical types in inference order. Unknown is last and always matches.
func Catalog() []*LogicalType {
	return []*LogicalType{
		Boolean, Integer, Double, Datetime, PostalCode, EmailAddress, URL,
		Categorical, Ordinal, NaturalLanguage, Unknown,
	}
}

func normalizeTypeName(name string) string {
	r := strings.NewReplacer("_", "", " ", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

// LookupLogicalType resolves a logical type by name, ignoring case and separators.
func LookupLogicalType(name string) (*LogicalType, error) {
	key := normalizeTypeName(name)
	if key == normalizeTypeName(Any.name) {
		return Any, nil
	}
	for _, l := range Catalog() {
		if normalizeTypeName(l.name) == key {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMLType, name)
}

// MLType is a logical type plus user-assigned tags. The effective tag set is the
// union of the logical type's mandatory tags and the user tags.
type MLType struct {
	Logical *LogicalType
	tags    TagSet
}

// New builds an MLType with optional user tags.
func New(logical *LogicalType, tags ...string) MLType {
	return MLType{Logical: logical, tags: NewTagSet(tags...)}
}

// Tags returns the effective tag set.
func (t MLType) Tags() TagSet {
	if t.Logical == nil {
		return t.UserTags()
	}
	return t.Logical.MandatoryTags().Union(t.tags)
}

// UserTags returns the tags that are not mandatory for the logical type.
func (t MLType) UserTags() TagSet {
	if t.Logical == nil {
		return TagSet{}.Union(t.tags)
	}
	return TagSet{}.Union(t.tags).Without(t.Logical.mandatoryTags...)
}

// HasTag reports whether tag is in the effective tag set.
func (t MLType) HasTag(tag string) bool {
	return t.Tags().Contains(tag)
}

// WithTags returns a copy with extra user tags.
func (t MLType) WithTags(tags ...string) MLType {
	return MLType{Logical: t.Logical, tags: t.UserTags().Union(NewTagSet(tags...))}
}

// WithoutTags returns a copy without the given user tags.
func (t MLType) WithoutTags(tags ...string) MLType {
	return MLType{Logical: t.Logical, tags: t.UserTags().Without(tags...)}
}

func (t MLType) IsNumeric() bool     { return t.HasTag(TagNumeric) }
func (t MLType) IsCategorical() bool { return t.HasTag(TagCategory) }
func (t MLType) IsDatetime() bool    { return t.Logical == Datetime }
func (t MLType) IsBoolean() bool     { return t.Logical == Boolean }

// Equal compares logical types by identity.
func (t MLType) Equal(o MLType) bool { return t.Logical == o.Logical }

// Identical compares logical type and effective tags.
func (t MLType) Identical(o MLType) bool {
	return t.Logical == o.Logical && t.Tags().Equal(o.Tags())
}

func (t MLType) String() string {
	name := "<nil>"
	if t.Logical != nil {
		name = t.Logical.name
	}
	tags := t.Tags()
	if len(tags) == 0 {
		return name
	}
	return name + "[" + strings.Join(tags.Sorted(), ",") + "]"
}

// CheckTypeCompatible reports whether an operator declaring input can be bound to a column
// of type column: input is the Any sentinel, or the logical types are identical.
func CheckTypeCompatible(input *LogicalType, column MLType) bool {
	return input == Any || input == column.Logical
}
