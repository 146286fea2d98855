// Package trigger provides the builder/reader over a trigger's meta
// document used by trigger-creation handlers.
package trigger

import (
	"github.com/watchgrid/triggerd/internal/condlang"
	"github.com/watchgrid/triggerd/internal/datastore/entities"
)

// MetaBuilder wraps a trigger meta document, appending condition variables
// and merging notification parameters. Variable names are assigned from a
// strictly increasing counter and never reused within one builder.
//
// Builder methods return the receiver for chaining; Meta() yields the
// document for persistence.
type MetaBuilder struct {
	meta    entities.TriggerMeta
	counter int
}

// NewMetaBuilder wraps an existing meta document, or creates the empty
// skeleton when given a zero value. The name counter resumes after the
// highest existing variable index.
func NewMetaBuilder(meta entities.TriggerMeta) *MetaBuilder {
	if meta.NotificationParams == nil {
		meta.NotificationParams = entities.NotificationParams{}
	}
	if meta.ConditionLanguage.Variables == nil {
		meta.ConditionLanguage.Variables = make(map[string]condlang.ConditionVariable)
	}
	return &MetaBuilder{meta: meta, counter: len(meta.ConditionLanguage.Variables)}
}

// VariableName returns the next variable name and advances the counter.
func (b *MetaBuilder) VariableName() string {
	name := condlang.VariableName(b.counter)
	b.counter++
	return name
}

// AddPresenceVariable appends a presence variable over the given targets.
func (b *MetaBuilder) AddPresenceVariable(targets []condlang.TargetRef, limit int, op condlang.Operator) *MetaBuilder {
	b.meta.ConditionLanguage.Variables[b.VariableName()] = condlang.ConditionVariable{
		Type:      condlang.TypePresence,
		Targets:   targets,
		Operation: op,
		Limit:     limit,
	}
	return b
}

// AddLocationOverflowVariable appends a location-overflow variable over the
// given places.
func (b *MetaBuilder) AddLocationOverflowVariable(places []condlang.PlaceRef, limit int, op condlang.Operator) *MetaBuilder {
	b.meta.ConditionLanguage.Variables[b.VariableName()] = condlang.ConditionVariable{
		Type:      condlang.TypeLocationOverflow,
		Places:    places,
		Operation: op,
		Limit:     limit,
	}
	return b
}

// UpdateNotificationParams shallow-merges params into the existing set.
func (b *MetaBuilder) UpdateNotificationParams(params entities.NotificationParams) *MetaBuilder {
	b.meta.NotificationParams.Merge(params)
	return b
}

// ConditionLanguage returns the embedded condition language document.
func (b *MetaBuilder) ConditionLanguage() condlang.ConditionLanguage {
	return b.meta.ConditionLanguage
}

// NotificationParams returns the current notification parameters.
func (b *MetaBuilder) NotificationParams() entities.NotificationParams {
	return b.meta.NotificationParams
}

// Meta returns the full document for persistence.
func (b *MetaBuilder) Meta() entities.TriggerMeta {
	return b.meta
}

// Validate checks the document is evaluable: exactly one variable, no
// combination expression, and a well-formed variable body. Trigger creation
// calls this before persisting so unsupported documents are rejected up
// front instead of failing every evaluation tick.
func (b *MetaBuilder) Validate() error {
	if b.meta.ConditionLanguage.Condition != "" || len(b.meta.ConditionLanguage.Variables) > 1 {
		return condlang.ErrUnsupportedCondition
	}
	_, err := condlang.NewParser(b.meta.ConditionLanguage)
	return err
}
