package constants

// OutcomeStatus is the terminal status of one processed submission.
type OutcomeStatus string

// Stable values (returned to callers and used as metric labels).
const (
	StatusSuccess            OutcomeStatus = "success"
	StatusValidationRejected OutcomeStatus = "validation_rejected"
	StatusError              OutcomeStatus = "error"
	StatusPending            OutcomeStatus = "pending" // deadline hit, attempt still running or abandoned
)

// Source records where an extracted metric came from.
type Source string

const (
	SourceText       Source = "text"
	SourceAttachment Source = "attachment"
)
