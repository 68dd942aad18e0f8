package types

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type OutcomeKind string

const (
	OutcomeCommitted        OutcomeKind = "committed"
	OutcomeRejected         OutcomeKind = "rejected"
	OutcomeTransientFailure OutcomeKind = "transient_failure"
	OutcomeAborted          OutcomeKind = "aborted"
)

// Outcome is the result of one change session.  Exactly one is produced
// per submit and it is never persisted.
type Outcome struct {
	Kind       OutcomeKind
	Entity     Entity
	Violations []Violation
	Reason     string
	Attempts   int
}

func Committed(e Entity, attempts int) Outcome {
	return Outcome{Kind: OutcomeCommitted, Entity: e, Attempts: attempts}
}

func Rejected(vs []Violation) Outcome {
	return Outcome{Kind: OutcomeRejected, Violations: vs}
}

func TransientFailure(reason string, attempts int) Outcome {
	return Outcome{Kind: OutcomeTransientFailure, Reason: reason, Attempts: attempts}
}

func Aborted(reason string) Outcome {
	return Outcome{Kind: OutcomeAborted, Reason: reason}
}

// Messages returns the violation messages in order.
func Messages(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Message)
	}
	return out
}
