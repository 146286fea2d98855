package condlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOperation(t *testing.T) {
	tests := []struct {
		name  string
		count int
		op    Operator
		limit int
		want  bool
	}{
		{"gt true", 5, OperatorGreaterThan, 3, true},
		{"gt false equal", 3, OperatorGreaterThan, 3, false},
		{"lt true", 1, OperatorLessThan, 3, true},
		{"lt false", 3, OperatorLessThan, 3, false},
		{"eq true", 3, OperatorEqual, 3, true},
		{"eq false", 2, OperatorEqual, 3, false},
		{"lte true equal", 3, OperatorLessOrEqual, 3, true},
		{"lte true less", 2, OperatorLessOrEqual, 3, true},
		{"lte false", 4, OperatorLessOrEqual, 3, false},
		{"gte true equal", 3, OperatorGreaterOrEqual, 3, true},
		{"gte false", 2, OperatorGreaterOrEqual, 3, false},
		{"neq true", 2, OperatorNotEqual, 3, true},
		{"neq false", 3, OperatorNotEqual, 3, false},
		{"zero count gt", 0, OperatorGreaterThan, 0, false},
		{"zero count gte", 0, OperatorGreaterOrEqual, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckOperation(tt.count, tt.op, tt.limit))
		})
	}
}

func TestCheckOperation_UnknownOperator(t *testing.T) {
	assert.False(t, CheckOperation(5, Operator(">="+"="), 3))
	assert.False(t, CheckOperation(5, Operator("=="), 3))
	assert.False(t, CheckOperation(5, Operator(""), 3))
}

func TestKnownOperator(t *testing.T) {
	for _, op := range []Operator{OperatorGreaterThan, OperatorLessThan, OperatorEqual,
		OperatorLessOrEqual, OperatorGreaterOrEqual, OperatorNotEqual} {
		assert.True(t, KnownOperator(op), string(op))
	}
	assert.False(t, KnownOperator(Operator("==")))
}
