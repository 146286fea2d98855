package condlang

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/watchgrid/triggerd/internal/ongoing"
)

// variableEntry keeps a parsed variable together with its canonical index.
type variableEntry struct {
	name     string
	index    int
	variable ConditionVariable
}

// Parser is a validated, ordered view over a ConditionLanguage document.
// Construction fails fast on malformed documents; callers are expected to
// have schema-validated trigger meta before persisting it, so an error here
// indicates corrupted state rather than bad user input.
type Parser struct {
	variables []variableEntry
	condition string
}

// NewParser validates and indexes a condition language document.
func NewParser(lang ConditionLanguage) (*Parser, error) {
	entries := make([]variableEntry, 0, len(lang.Variables))
	for name, v := range lang.Variables {
		idx, err := parseVariableName(name)
		if err != nil {
			return nil, err
		}
		if err := validateVariable(name, v); err != nil {
			return nil, err
		}
		entries = append(entries, variableEntry{name: name, index: idx, variable: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	return &Parser{variables: entries, condition: lang.Condition}, nil
}

func validateVariable(name string, v ConditionVariable) error {
	switch v.Type {
	case TypePresence:
		if len(v.Targets) == 0 {
			return fmt.Errorf("%w: presence variable %q has no targets", ErrMalformedVariable, name)
		}
		for _, t := range v.Targets {
			if err := uuid.Validate(t.UUID); err != nil {
				return fmt.Errorf("%w: bad target uuid %q in variable %q", ErrMalformedVariable, t.UUID, name)
			}
		}
	case TypeLocationOverflow:
		if len(v.Places) == 0 {
			return fmt.Errorf("%w: location_overflow variable %q has no places", ErrMalformedVariable, name)
		}
		for _, pl := range v.Places {
			if err := uuid.Validate(pl.UUID); err != nil {
				return fmt.Errorf("%w: bad place uuid %q in variable %q", ErrMalformedVariable, pl.UUID, name)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q in variable %q", ErrMalformedVariable, v.Type, name)
	}
	if v.Limit < 0 {
		return fmt.Errorf("%w: negative limit in variable %q", ErrMalformedVariable, name)
	}
	return nil
}

// Condition returns the raw multi-variable combination expression, empty if
// none is declared.
func (p *Parser) Condition() string {
	return p.condition
}

// VariableCount returns the number of declared variables.
func (p *Parser) VariableCount() int {
	return len(p.variables)
}

// Targets returns the target list of the variable at position i.
func (p *Parser) Targets(i int) ([]TargetRef, error) {
	if i < 0 || i >= len(p.variables) {
		return nil, fmt.Errorf("%w: index %d", ErrVariableNotFound, i)
	}
	return p.variables[i].variable.Targets, nil
}

// Places returns the place list of the variable at position i.
func (p *Parser) Places(i int) ([]PlaceRef, error) {
	if i < 0 || i >= len(p.variables) {
		return nil, fmt.Errorf("%w: index %d", ErrVariableNotFound, i)
	}
	return p.variables[i].variable.Places, nil
}

// ProfileGroupIDs returns the uuids of Label-kind targets of variable i.
func (p *Parser) ProfileGroupIDs(i int) ([]string, error) {
	targets, err := p.Targets(i)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, t := range targets {
		if t.Kind == KindLabel {
			ids = append(ids, t.UUID)
		}
	}
	return ids, nil
}

// VariableName returns the name of the variable at position i.
func (p *Parser) VariableName(i int) (string, error) {
	if i < 0 || i >= len(p.variables) {
		return "", fmt.Errorf("%w: index %d", ErrVariableNotFound, i)
	}
	return p.variables[i].name, nil
}

// VariableTypeByIndex returns the declared type of the variable at position i.
func (p *Parser) VariableTypeByIndex(i int) (VariableType, error) {
	if i < 0 || i >= len(p.variables) {
		return "", fmt.Errorf("%w: index %d", ErrVariableNotFound, i)
	}
	return p.variables[i].variable.Type, nil
}

// VariableTypeByName returns the declared type of the named variable.
func (p *Parser) VariableTypeByName(name string) (VariableType, error) {
	for i := range p.variables {
		if p.variables[i].name == name {
			return p.variables[i].variable.Type, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrVariableNotFound, name)
}

// Variable returns the full variable at position i.
func (p *Parser) Variable(i int) (ConditionVariable, error) {
	if i < 0 || i >= len(p.variables) {
		return ConditionVariable{}, fmt.Errorf("%w: index %d", ErrVariableNotFound, i)
	}
	return p.variables[i].variable, nil
}

// HasTarget reports whether any variable references the given uuid in its
// target list. Used by cascade-delete hooks on label/person removal.
func (p *Parser) HasTarget(uuid string) bool {
	for i := range p.variables {
		for _, t := range p.variables[i].variable.Targets {
			if t.UUID == uuid {
				return true
			}
		}
	}
	return false
}

// HasPlace reports whether any variable references the given uuid in its
// place list.
func (p *Parser) HasPlace(uuid string) bool {
	for i := range p.variables {
		for _, pl := range p.variables[i].variable.Places {
			if pl.UUID == uuid {
				return true
			}
		}
	}
	return false
}

// Evaluate runs every variable against the packed ongoings and returns the
// overall boolean result together with per-variable structured results.
//
// With no combination expression the overall result is that of the first
// variable. Documents with a combination expression have no defined
// evaluation semantics and are rejected with ErrUnsupportedCondition.
func (p *Parser) Evaluate(packed []ongoing.PackedOngoing, scoreThreshold float64) (bool, map[string]Result, error) {
	if p.condition != "" {
		return false, nil, ErrUnsupportedCondition
	}
	if len(p.variables) == 0 {
		return false, nil, fmt.Errorf("%w: empty document", ErrVariableNotFound)
	}

	results := make(map[string]Result, len(p.variables))
	for i := range p.variables {
		entry := &p.variables[i]
		switch entry.variable.Type {
		case TypePresence:
			results[entry.name] = evaluatePresence(entry.variable, packed, scoreThreshold)
		case TypeLocationOverflow:
			results[entry.name] = evaluateLocationOverflow(entry.variable, packed)
		}
	}

	return results[p.variables[0].name].Satisfied(), results, nil
}

// evaluatePresence counts detected persons across all packed groups. A
// person is detected when their profile id is in the target list or any of
// their profile groups intersects the Label-kind targets. Each person is
// counted once even when both checks match.
func evaluatePresence(v ConditionVariable, packed []ongoing.PackedOngoing, scoreThreshold float64) PresenceResult {
	targetSet := make(map[string]struct{}, len(v.Targets))
	for _, t := range v.Targets {
		targetSet[t.UUID] = struct{}{}
	}

	seen := make(map[string]struct{})
	var matches []PersonMatch

	for gi := range packed {
		group := &packed[gi]
		for pi := range group.Persons {
			person := &group.Persons[pi]
			if person.MatchScore < scoreThreshold {
				continue
			}
			if _, dup := seen[person.ProfileID]; dup {
				continue
			}

			_, byID := targetSet[person.ProfileID]
			var matchedGroups []string
			for _, g := range person.ProfileGroupIDs {
				if _, ok := targetSet[g]; ok {
					matchedGroups = append(matchedGroups, g)
				}
			}

			if !byID && len(matchedGroups) == 0 {
				continue
			}

			seen[person.ProfileID] = struct{}{}
			matches = append(matches, PersonMatch{
				Person:          *person,
				CameraID:        group.CameraID,
				LocationIDs:     group.LocationIDs,
				MatchedGroupIDs: matchedGroups,
			})
		}
	}

	return PresenceResult{
		Matched: CheckOperation(len(matches), v.Operation, v.Limit),
		Persons: matches,
	}
}

// evaluateLocationOverflow counts persons in the first packed group whose
// locations intersect the variable's place set.
func evaluateLocationOverflow(v ConditionVariable, packed []ongoing.PackedOngoing) LocationResult {
	placeSet := make(map[string]struct{}, len(v.Places))
	for _, pl := range v.Places {
		placeSet[pl.UUID] = struct{}{}
	}

	count := 0
	for gi := range packed {
		group := &packed[gi]
		intersects := false
		for _, loc := range group.LocationIDs {
			if _, ok := placeSet[loc]; ok {
				intersects = true
				break
			}
		}
		if intersects {
			count = len(group.Persons)
			break
		}
	}

	return LocationResult{
		Matched:      CheckOperation(count, v.Operation, v.Limit),
		CurrentCount: count,
	}
}
