package problem

import (
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
)

var windowUnits = []struct {
	name string
	size time.Duration
}{
	{"week", 7 * 24 * time.Hour},
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
	{"second", time.Second},
}

// HumanizeWindow renders a window in the largest unit that divides it, e.g. "2 days".
func HumanizeWindow(d time.Duration) string {
	for _, u := range windowUnits {
		if d >= u.size && d%u.size == 0 {
			return pluralize(int64(d/u.size), u.name)
		}
	}
	if d%time.Millisecond == 0 && d > 0 {
		return pluralize(d.Milliseconds(), "millisecond")
	}
	return d.String()
}

func pluralize(n int64, unit string) string {
	if n != 1 {
		unit = inflection.Plural(unit)
	}
	return strconv.FormatInt(n, 10) + " " + unit
}

// Description renders the problem in English:
//
//	For each <entity> predict <aggregation> <transformation> <filter> in next <window>
//
// Fragments that render empty are skipped.
func (p *Problem) Description() string {
	var b strings.Builder
	if p.EntityColumn != "" {
		b.WriteString("For each ")
		b.WriteString(p.EntityColumn)
		b.WriteString(" predict ")
	} else {
		b.WriteString("Predict ")
	}
	var fragments []string
	for _, op := range []string{p.Aggregation.Description(), p.Transformation.Description(), p.Filter.Description()} {
		if op != "" {
			fragments = append(fragments, op)
		}
	}
	b.WriteString(strings.Join(fragments, " "))
	b.WriteString(" in next ")
	b.WriteString(HumanizeWindow(p.WindowSize))
	return b.String()
}
