package env

import (
	"errors"
	"fmt"
)

// ErrorKind classifies environment failures.
type ErrorKind int

const (
	NameNotExported ErrorKind = iota + 1
	NameNotFound
	PrivateImportRejected
	SlotOutOfRange
	SlotAbsent
)

func (k ErrorKind) String() string {
	switch k {
	case NameNotExported:
		return "name not exported"
	case NameNotFound:
		return "name not found"
	case PrivateImportRejected:
		return "private import rejected"
	case SlotOutOfRange:
		return "slot out of range"
	case SlotAbsent:
		return "slot absent"
	default:
		return "unknown"
	}
}

// EnvironmentError is returned by symbol and slot operations.
type EnvironmentError struct {
	Kind       ErrorKind
	Symbol     string
	Suggestion string
	Slot       Slot
	Len        int
}

// Sentinels for errors.Is; they match any EnvironmentError of the same kind.
var (
	ErrNameNotExported       = &EnvironmentError{Kind: NameNotExported}
	ErrNameNotFound          = &EnvironmentError{Kind: NameNotFound}
	ErrPrivateImportRejected = &EnvironmentError{Kind: PrivateImportRejected}
	ErrSlotOutOfRange        = &EnvironmentError{Kind: SlotOutOfRange}
	ErrSlotAbsent            = &EnvironmentError{Kind: SlotAbsent}
)

// ErrModuleFrozen is returned when a function reads the globals of a module
// that has since been frozen.
var ErrModuleFrozen = errors.New("module used after freeze")

func (e *EnvironmentError) Error() string {
	switch e.Kind {
	case NameNotExported:
		return fmt.Sprintf("module symbol `%s` is not exported", e.Symbol)
	case NameNotFound:
		if e.Suggestion != "" {
			return fmt.Sprintf("module has no symbol `%s`, did you mean `%s`?", e.Symbol, e.Suggestion)
		}
		return fmt.Sprintf("module has no symbol `%s`", e.Symbol)
	case PrivateImportRejected:
		return fmt.Sprintf("cannot import private symbol `%s`", e.Symbol)
	case SlotOutOfRange:
		return fmt.Sprintf("slot %d out of range (have %d)", e.Slot, e.Len)
	case SlotAbsent:
		if e.Symbol != "" {
			return fmt.Sprintf("variable `%s` referenced before assignment", e.Symbol)
		}
		return fmt.Sprintf("slot %d referenced before assignment", e.Slot)
	default:
		return "environment error"
	}
}

// Is matches on Kind so the sentinels work with errors.Is.
func (e *EnvironmentError) Is(target error) bool {
	t, ok := target.(*EnvironmentError)
	return ok && t.Kind == e.Kind
}
