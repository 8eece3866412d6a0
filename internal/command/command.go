package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sender receives text feedback for a dispatch participant. Delivery is
// fire-and-forget; the registry never learns whether a message arrived.
type Sender interface {
	SendMessage(text string)
}

// Handler is the invokable body of a command. The matched name's tokens
// are stripped from the input before args is built, so args holds only
// the trailing tokens the sender typed after the command name.
//
// A returned error is normalized to OutcomeError at the dispatch boundary
// and never propagates to the dispatch caller.
type Handler func(ctx context.Context, sender Sender, args []string) (Outcome, error)

// Plugin identifies the module that owns a set of commands. ID is the
// lowercase token used for the plugin-prefixed namespace.
type Plugin interface {
	ID() string
	Name() string
}

// Provider is the registration boundary a plugin presents: the explicit
// list of command descriptors it wants registered.
type Provider interface {
	Commands() []Descriptor
}

// ParamKind classifies one declared handler parameter after the sender.
type ParamKind int

const (
	// ParamString is a single mandatory string argument.
	ParamString ParamKind = iota
	// ParamTail is a variable-length tail of string arguments. Only valid
	// in the last position.
	ParamTail
)

// Descriptor declares one command: its name tokens, secondary leaf
// aliases, parameter shape, and handler. Descriptors are validated at
// registration time; a non-conforming descriptor is skipped with a
// warning, never repaired.
type Descriptor struct {
	Name    []string
	Aliases []string
	Usage   string
	Params  []ParamKind
	Handler Handler
}

var (
	// ErrDescriptorNoHandler indicates a descriptor without a handler.
	ErrDescriptorNoHandler = errors.New("descriptor has no handler")
	// ErrDescriptorTailNotLast indicates a tail parameter before the last position.
	ErrDescriptorTailNotLast = errors.New("tail parameter must be the last parameter")
	// ErrDescriptorParamInvalid indicates an unknown parameter kind.
	ErrDescriptorParamInvalid = errors.New("unknown parameter kind")
)

// validate checks the descriptor's declared shape. The sender-first
// parameter and the Outcome return are enforced by the Handler type
// itself, so only the declared metadata needs checking here.
func (d Descriptor) validate() (Name, error) {
	name, err := NewName(d.Name...)
	if err != nil {
		return Name{}, err
	}
	if d.Handler == nil {
		return Name{}, ErrDescriptorNoHandler
	}
	for i, kind := range d.Params {
		switch kind {
		case ParamString:
		case ParamTail:
			if i != len(d.Params)-1 {
				return Name{}, ErrDescriptorTailNotLast
			}
		default:
			return Name{}, fmt.Errorf("%w at index %d", ErrDescriptorParamInvalid, i)
		}
	}
	return name, nil
}

// usageHint returns the declared usage, or one derived from the parameter
// shape when the descriptor does not carry its own.
func (d Descriptor) usageHint() string {
	if usage := strings.TrimSpace(d.Usage); usage != "" {
		return usage
	}
	parts := make([]string, 0, len(d.Params))
	for _, kind := range d.Params {
		if kind == ParamTail {
			parts = append(parts, "[args...]")
			continue
		}
		parts = append(parts, "<arg>")
	}
	return strings.Join(parts, " ")
}

// registeredCommand is the registry's stored record for one name. Records
// are replaced, never mutated, when a conflict rule permits an override.
type registeredCommand struct {
	plugin  Plugin
	handler Handler
	isAlias bool
	usage   string
}
