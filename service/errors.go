package service

import (
	"errors"
)

// Kind classifies an error for callers that need to map it to a response
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindInsufficientBalance
	KindInvalidInput
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified service error with a stable machine code.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrUserNotFound        = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrCaseNotFound        = &Error{Kind: KindNotFound, Code: "case_not_found", Message: "case not found"}
	ErrItemNotFound        = &Error{Kind: KindNotFound, Code: "item_not_found", Message: "item not found"}
	ErrCaseInactive        = &Error{Kind: KindInvalidState, Code: "case_inactive", Message: "case is not active"}
	ErrCaseEmpty           = &Error{Kind: KindInvalidState, Code: "case_empty", Message: "case has no items with positive weight"}
	ErrUserBanned          = &Error{Kind: KindInvalidState, Code: "user_banned", Message: "user is banned"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Code: "insufficient_balance", Message: "insufficient balance"}
	ErrInvalidAmount       = &Error{Kind: KindInvalidInput, Code: "invalid_amount", Message: "invalid amount"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Code: "invalid_input", Message: "invalid input"}
	ErrDuplicateName       = &Error{Kind: KindInvalidInput, Code: "duplicate_name", Message: "name already exists"}
	ErrConflict            = &Error{Kind: KindConflict, Code: "conflict", Message: "concurrent update, retries exhausted"}
	ErrUnavailable         = &Error{Kind: KindUnavailable, Code: "unavailable", Message: "storage unavailable"}
)

// invalidInput returns an ErrInvalidInput carrying a specific message
func invalidInput(message string) error {
	return &Error{Kind: KindInvalidInput, Code: ErrInvalidInput.Code, Message: message}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of the first classified error in err's chain
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
