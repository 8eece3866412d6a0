package command

// Outcome is the closed result code a handler reports after running.
//
// The zero value is deliberately not a legal handler result: a handler
// that returns it is treated as OutcomeFailureOther at the dispatch
// boundary, exactly once, immediately after invocation.
type Outcome int

const (
	// OutcomeUnspecified is the zero value; never a valid handler result.
	OutcomeUnspecified Outcome = iota
	// OutcomeSuccess indicates the command ran and no message is owed.
	OutcomeSuccess
	// OutcomeNoPermission indicates the sender lacks permission.
	OutcomeNoPermission
	// OutcomeWrongUsage indicates the sender should be shown the usage hint.
	OutcomeWrongUsage
	// OutcomeUnsupportedSender indicates the sender kind cannot run this command.
	OutcomeUnsupportedSender
	// OutcomeError indicates the handler failed while running.
	OutcomeError
	// OutcomeNotHandled indicates no handler ran. Handlers must not return
	// it themselves; when one does it is coerced to OutcomeFailureOther.
	OutcomeNotHandled
	// OutcomeFailureOther indicates an unclassified failure.
	OutcomeFailureOther
)

// String returns a stable lowercase label for logs and audit records.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoPermission:
		return "no_permission"
	case OutcomeWrongUsage:
		return "wrong_usage"
	case OutcomeUnsupportedSender:
		return "unsupported_sender"
	case OutcomeError:
		return "error"
	case OutcomeNotHandled:
		return "not_handled"
	case OutcomeFailureOther:
		return "failure_other"
	default:
		return "unspecified"
	}
}
