package condlang

// Operator is a comparison symbol used by condition variables.
type Operator string

const (
	OperatorGreaterThan    Operator = ">"
	OperatorLessThan       Operator = "<"
	OperatorEqual          Operator = "="
	OperatorLessOrEqual    Operator = "<="
	OperatorGreaterOrEqual Operator = ">="
	OperatorNotEqual       Operator = "!="
)

// CheckOperation compares a detection count against a limit using an
// explicit dispatch table. Unknown operators yield false rather than an
// error so a bad document can never fire a trigger.
func CheckOperation(count int, op Operator, limit int) bool {
	switch op {
	case OperatorGreaterThan:
		return count > limit
	case OperatorLessThan:
		return count < limit
	case OperatorEqual:
		return count == limit
	case OperatorLessOrEqual:
		return count <= limit
	case OperatorGreaterOrEqual:
		return count >= limit
	case OperatorNotEqual:
		return count != limit
	default:
		return false
	}
}

// KnownOperator reports whether op is part of the condition language.
func KnownOperator(op Operator) bool {
	switch op {
	case OperatorGreaterThan, OperatorLessThan, OperatorEqual,
		OperatorLessOrEqual, OperatorGreaterOrEqual, OperatorNotEqual:
		return true
	default:
		return false
	}
}
