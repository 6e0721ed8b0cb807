package model

import "fmt"

// NotificationKind classifies the outcome of an operation.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// String returns the string representation of the kind.
func (k NotificationKind) String() string {
	return string(k)
}

// Notification is the result of invoking an operation. Callers decide how
// to surface it (toast, SSE event, CLI line).
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Operation   Operation        `json:"operation,omitempty"`
}

// OK reports whether the notification is a success.
func (n Notification) OK() bool {
	return n.Kind == KindSuccess
}

func (n Notification) String() string {
	return fmt.Sprintf("%s: %s", n.Title, n.Description)
}

// WalletNotConnected is returned when an operation is invoked without a
// wallet session.
func WalletNotConnected(op Operation) Notification {
	return Notification{
		Kind:        KindWarning,
		Title:       "Wallet Not Connected",
		Description: "Please connect your wallet first",
		Operation:   op,
	}
}

// OperationInProgress is returned when another operation is already in
// flight on the same panel.
func OperationInProgress(op, inFlight Operation) Notification {
	return Notification{
		Kind:        KindWarning,
		Title:       "Operation In Progress",
		Description: fmt.Sprintf("Counter %s is still in flight", inFlight),
		Operation:   op,
	}
}

// TransactionSucceeded is returned after a completed operation.
func TransactionSucceeded(op Operation) Notification {
	return Notification{
		Kind:        KindSuccess,
		Title:       "Transaction Successful",
		Description: fmt.Sprintf("Counter %s completed", op),
		Operation:   op,
	}
}

// TransactionFailed is returned when the pause or the mutation failed.
func TransactionFailed(op Operation) Notification {
	return Notification{
		Kind:        KindError,
		Title:       "Transaction Failed",
		Description: fmt.Sprintf("Failed to %s counter", op),
		Operation:   op,
	}
}
