// Package actions runs ordered lists of typed actions against a page,
// producing one result per action. Failures are values: a failed action is
// recorded and the sequence continues.
package actions

import (
	"log/slog"
	"regexp"

	"github.com/use-agent/drover/models"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// SubstituteParams rewrites every text field (selector, value, description,
// url) of each action, replacing `${name}` occurrences with the parameter
// map's value. A missing parameter leaves the placeholder intact and logs a
// warning. The input slice is not mutated.
func SubstituteParams(in []models.Action, params map[string]string) []models.Action {
	out := make([]models.Action, len(in))
	for i, a := range in {
		a.Selector = substitute(a.Selector, params)
		a.Value = substitute(a.Value, params)
		a.Description = substitute(a.Description, params)
		a.URL = substitute(a.URL, params)
		out[i] = a
	}
	return out
}

func substitute(s string, params map[string]string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := params[name]; ok {
			return val
		}
		slog.Warn("parameter not provided, leaving placeholder intact", "name", name)
		return match
	})
}
