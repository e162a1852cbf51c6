package coordinator

import "fmt"

// Kind tags the taxonomy of coordinator errors described in spec.md §7.
// Go has no native sum type, so — following the teacher's preference for
// plain, inspectable error values over panics — every service method that
// can fail in an expected way returns a *Error wrapping one of these kinds
// instead of a bare error string.
type Kind string

const (
	KindInsufficientBalance  Kind = "InsufficientBalance"
	KindInvalidPhrase        Kind = "InvalidPhrase"
	KindNoEligibleWork       Kind = "NoEligibleWork"
	KindAlreadyInRound       Kind = "AlreadyInRound"
	KindAlreadyVoted         Kind = "AlreadyVoted"
	KindAlreadyInSession     Kind = "AlreadyInSession"
	KindSessionFull          Kind = "SessionFull"
	KindSessionAlreadyStarted Kind = "SessionAlreadyStarted"
	KindNotHost              Kind = "NotHost"
	KindNotEnoughPlayers     Kind = "NotEnoughPlayers"
	KindWrongPhase           Kind = "WrongPhase"
	KindRoundExpired         Kind = "RoundExpired"
	KindLockTimeout          Kind = "LockTimeout"
	KindAIGenerationFailed   Kind = "AIGenerationFailed"
	KindProviderUnavailable  Kind = "ProviderUnavailable"
	KindVoteLockout          Kind = "VoteLockout"
	KindNotFound             Kind = "NotFound"
	KindOutstandingCapReached Kind = "OutstandingCapReached"
)

// Error is the coordinator's typed result-error. Reason is a
// human-readable string for callers that want to surface it directly
// (e.g. InvalidPhrase{reason}); Details carries arbitrary structured
// context for logging.
type Error struct {
	Kind    Kind
	Reason  string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

// New constructs a coordinator error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf constructs a coordinator error with a formatted reason.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a coordinator *Error of the given kind,
// following the errors.Is convention the rest of the module uses to
// branch on failure kind instead of string-matching messages.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*Error)
	return ok && ce.Kind == kind
}

// WithDetails attaches structured context and returns the same error for
// chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}
