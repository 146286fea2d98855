// Package condlang implements the trigger condition meta-language: a small
// document format describing boolean presence/overflow conditions over
// streaming person-detection snapshots, and the parser that evaluates it.
package condlang

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VariableType identifies the evaluator for a condition variable.
type VariableType string

const (
	TypePresence         VariableType = "presence"
	TypeLocationOverflow VariableType = "location_overflow"
)

// Reference kinds used in target and place lists.
const (
	KindPerson   = "Person"
	KindLabel    = "Label"
	KindLocation = "Location"
	KindCamera   = "Camera"
)

var (
	// ErrMalformedVariable is returned when a condition variable document is
	// missing required fields or uses an unknown type.
	ErrMalformedVariable = errors.New("condlang: malformed condition variable")

	// ErrUnsupportedCondition is returned for documents declaring a boolean
	// combination expression or more than one variable. The schema reserves
	// the combinator but no evaluation semantics are defined for it.
	ErrUnsupportedCondition = errors.New("condlang: multi-variable condition combination is not supported")

	// ErrVariableNotFound is returned by positional and named accessors.
	ErrVariableNotFound = errors.New("condlang: variable not found")
)

// TargetRef points a presence variable at a person or a profile group label.
type TargetRef struct {
	Kind string `json:"type"`
	UUID string `json:"uuid"`
}

// PlaceRef points a location-overflow variable at a label, location or camera.
type PlaceRef struct {
	Kind string `json:"type"`
	UUID string `json:"uuid"`
}

// ConditionVariable is one named entry in a condition language document.
// Targets is set for presence variables, Places for location overflow.
type ConditionVariable struct {
	Type      VariableType `json:"type"`
	Targets   []TargetRef  `json:"target,omitempty"`
	Places    []PlaceRef   `json:"place,omitempty"`
	Operation Operator     `json:"target_operation"`
	Limit     int          `json:"target_limit"`
}

// ConditionLanguage is the serializable condition document owned by a
// trigger. Variable names follow a strictly increasing "{n}_v" sequence
// assigned at creation time. Condition is the reserved multi-variable
// combination expression; a non-empty value marks the document unsupported.
type ConditionLanguage struct {
	Variables map[string]ConditionVariable `json:"variables"`
	Condition string                       `json:"condition,omitempty"`
}

// VariableName renders the canonical name for variable index n.
func VariableName(n int) string {
	return fmt.Sprintf("%d_v", n)
}

// parseVariableName extracts the index from a "{n}_v" name.
func parseVariableName(name string) (int, error) {
	raw, ok := strings.CutSuffix(name, "_v")
	if !ok {
		return 0, fmt.Errorf("%w: bad variable name %q", ErrMalformedVariable, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad variable name %q", ErrMalformedVariable, name)
	}
	return n, nil
}
