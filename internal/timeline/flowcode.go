// Package timeline implements the production timeline engine: flow code
// parsing, catalog expansion into a day-by-day schedule, transition
// classification and the rebuild plan applied when an operator moves a
// request to a new flow.
//
// Everything in this package is pure. Callers load a Catalog snapshot once
// per operation and persist the results themselves.
package timeline

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"agro-dashboard/backend/pkg/models"
)

// FlowCode identifies "day Step of the stage with Prefix", e.g. CR4.
type FlowCode struct {
	Prefix string
	Step   int
}

// String returns the canonical form: upper-case prefix followed by the
// decimal step.
func (f FlowCode) String() string {
	return Format(f.Prefix, f.Step)
}

// Next returns the following step of the same stage.
func (f FlowCode) Next() FlowCode { return FlowCode{Prefix: f.Prefix, Step: f.Step + 1} }

// Prev returns the preceding step of the same stage.
func (f FlowCode) Prev() FlowCode { return FlowCode{Prefix: f.Prefix, Step: f.Step - 1} }

// ParseFlowCode parses a flow code of the form PREFIX<digits>. The prefix is
// case-insensitive and is returned upper-cased.
func ParseFlowCode(code string) (FlowCode, error) {
	s := strings.TrimSpace(code)

	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 {
		return FlowCode{}, newError(CodeMalformedFlowCode, "flow %q has no letter prefix", code)
	}

	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j == i {
		return FlowCode{}, newError(CodeMalformedFlowCode, "flow %q has no step number", code)
	}
	if j != len(s) {
		return FlowCode{}, newError(CodeMalformedFlowCode, "flow %q has trailing characters %q", code, s[j:])
	}

	step, err := strconv.Atoi(s[i:j])
	if err != nil {
		return FlowCode{}, newError(CodeMalformedFlowCode, "flow %q step out of range", code)
	}

	return FlowCode{Prefix: strings.ToUpper(s[:i]), Step: step}, nil
}

// Format joins a prefix and a step into a flow code string.
func Format(prefix string, step int) string {
	return strings.ToUpper(prefix) + strconv.Itoa(step)
}

// PrefixOf returns the flow prefix used for a stage: its code when set,
// otherwise the first letter of its name.
func PrefixOf(stage models.Stage) string {
	if code := strings.TrimSpace(stage.Code); code != "" {
		return strings.ToUpper(code)
	}
	name := strings.TrimSpace(stage.Name)
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}

func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
