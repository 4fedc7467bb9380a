package mltypes

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// InferenceConfig holds the knobs of type inference. Callers pass it explicitly;
// nothing here reads process-wide state.
type InferenceConfig struct {
	// NumericCategoricalThreshold: numeric columns with at most this many distinct
	// values are treated as categorical. Zero or negative disables the rule.
	NumericCategoricalThreshold int
	// CategoricalMaxUniqueRatio is the largest distinct/non-missing ratio still considered categorical.
	CategoricalMaxUniqueRatio float64
	// NaturalLanguageMinWords is the average word count from which text is natural language.
	NaturalLanguageMinWords float64
}

// DefaultInferenceConfig returns sensible defaults.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		NumericCategoricalThreshold: -1,
		CategoricalMaxUniqueRatio:   0.5,
		NaturalLanguageMinWords:     3,
	}
}

// Infer returns the first logical type in catalog order whose inference function accepts s.
func Infer(s *frame.Series, cfg InferenceConfig) *LogicalType {
	if s.Len() == s.CountMissing() {
		return Unknown
	}
	for _, l := range Catalog() {
		if l.Infer(s, cfg) {
			return l
		}
	}
	return Unknown
}

var (
	postalCodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern        = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
)

// timeLayouts are tried in order when parsing datetimes from text.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTime parses text with the known layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// allValues reports whether pred holds for every non-missing value.
func allValues(s *frame.Series, pred func(v any) bool) bool {
	for i := 0; i < s.Len(); i++ {
		if s.IsMissing(i) {
			continue
		}
		if !pred(s.Value(i)) {
			return false
		}
	}
	return true
}

func nonMissing(s *frame.Series) int {
	return s.Len() - s.CountMissing()
}

// boolean-like value sets, compared after lowercasing and trimming.
var booleanSets = []map[string]bool{
	{"0": true, "1": true},
	{"true": true, "false": true},
	{"yes": true, "no": true},
	{"y": true, "n": true},
	{"t": true, "f": true},
}

func inferBoolean(s *frame.Series, _ InferenceConfig) bool {
	if s.DType() == frame.Bool {
		return true
	}
	uniq := s.Unique()
	if len(uniq) == 0 || len(uniq) > 2 {
		return false
	}
	for _, set := range booleanSets {
		all := true
		for _, v := range uniq {
			if !set[strings.ToLower(strings.TrimSpace(frame.FormatValue(v)))] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func asInteger(v any) (int64, bool) {
	switch x := frame.Normalize(v).(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if f, ok := frame.ToFloat(v); ok {
		return f, true
	}
	if x, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func belowNumericCategoricalThreshold(s *frame.Series, cfg InferenceConfig) bool {
	return cfg.NumericCategoricalThreshold > 0 && len(s.Unique()) <= cfg.NumericCategoricalThreshold
}

func inferInteger(s *frame.Series, cfg InferenceConfig) bool {
	if belowNumericCategoricalThreshold(s, cfg) {
		return false
	}
	return allValues(s, func(v any) bool {
		_, ok := asInteger(v)
		return ok
	})
}

func inferDouble(s *frame.Series, cfg InferenceConfig) bool {
	if belowNumericCategoricalThreshold(s, cfg) {
		return false
	}
	return allValues(s, func(v any) bool {
		_, ok := asFloat(v)
		return ok
	})
}

func inferDatetime(s *frame.Series, _ InferenceConfig) bool {
	if s.DType() == frame.Datetime {
		return true
	}
	return allValues(s, func(v any) bool {
		str, ok := v.(string)
		if !ok {
			return false
		}
		_, ok = ParseTime(str)
		return ok
	})
}

func matchesAll(s *frame.Series, re *regexp.Regexp) bool {
	return allValues(s, func(v any) bool {
		str, ok := v.(string)
		return ok && re.MatchString(strings.TrimSpace(str))
	})
}

func inferPostalCode(s *frame.Series, _ InferenceConfig) bool { return matchesAll(s, postalCodePattern) }
func inferEmail(s *frame.Series, _ InferenceConfig) bool      { return matchesAll(s, emailPattern) }
func inferURL(s *frame.Series, _ InferenceConfig) bool        { return matchesAll(s, urlPattern) }

func inferCategorical(s *frame.Series, cfg InferenceConfig) bool {
	n := nonMissing(s)
	if n == 0 {
		return false
	}
	if s.DType() == frame.Category {
		return true
	}
	if belowNumericCategoricalThreshold(s, cfg) {
		return true
	}
	ratio := float64(len(s.Unique())) / float64(n)
	return ratio <= cfg.CategoricalMaxUniqueRatio
}

func inferNaturalLanguage(s *frame.Series, cfg InferenceConfig) bool {
	words, n := 0, 0
	ok := allValues(s, func(v any) bool {
		str, isString := v.(string)
		if !isString {
			return false
		}
		words += len(strings.Fields(str))
		n++
		return true
	})
	if !ok || n == 0 {
		return false
	}
	return float64(words)/float64(n) >= cfg.NaturalLanguageMinWords
}
