package datasource

import (
	"fmt"
	"maps"
	"slices"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
)

// CheckValue reports whether a value carries a SQL injection pattern, with the libinjection
// fingerprint. Only strings are checked; numbers and booleans cannot carry one.
func CheckValue(value any) (bool, string) {
	s, ok := value.(string)
	if !ok {
		return false, ""
	}
	isSQLi, fingerprint := libinjection.IsSQLi(s)
	return isSQLi, string(fingerprint)
}

// ScreenWhere rejects a Where clause whose values look like injection attempts.
func ScreenWhere(where map[string]any) error {
	for _, column := range SortedKeys(where) {
		if isSQLi, fingerprint := CheckValue(where[column]); isSQLi {
			return fmt.Errorf("%w: value for %q (fingerprint %s)", apperrors.ErrUnsafeValue, column, fingerprint)
		}
	}
	return nil
}

// SortedKeys returns the Where columns in a stable order for query building.
func SortedKeys(where map[string]any) []string {
	return slices.Sorted(maps.Keys(where))
}
