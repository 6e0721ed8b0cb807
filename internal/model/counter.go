package model

// Counter is the record displayed and mutated by a panel. ID carries the
// package identifier of the network the panel was mounted with.
type Counter struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Operation names one of the counter mutations.
type Operation string

const (
	OpNone      Operation = ""
	OpIncrement Operation = "increment"
	OpDecrement Operation = "decrement"
	OpReset     Operation = "reset"
	OpCreate    Operation = "create"
)

// Operations lists the valid operations in display order.
var Operations = []Operation{OpIncrement, OpDecrement, OpReset, OpCreate}

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsValid reports whether o is one of the four counter operations.
func (o Operation) IsValid() bool {
	switch o {
	case OpIncrement, OpDecrement, OpReset, OpCreate:
		return true
	}
	return false
}

// Increment returns c with its count raised by one.
func Increment(c Counter) Counter {
	c.Count++
	return c
}

// Decrement returns c with its count lowered by one, never below zero.
func Decrement(c Counter) Counter {
	c.Count = max(0, c.Count-1)
	return c
}

// Reset returns c with its count set to zero.
func Reset(c Counter) Counter {
	c.Count = 0
	return c
}

// Create returns a mutation that replaces the whole record with a fresh
// counter bound to packageID.
func Create(packageID string) func(Counter) Counter {
	return func(Counter) Counter {
		return Counter{ID: packageID, Count: 0}
	}
}

// MutationFor returns the pure mutation for op. packageID is only used by
// OpCreate. Returns nil for an unknown operation.
func MutationFor(op Operation, packageID string) func(Counter) Counter {
	switch op {
	case OpIncrement:
		return Increment
	case OpDecrement:
		return Decrement
	case OpReset:
		return Reset
	case OpCreate:
		return Create(packageID)
	}
	return nil
}
