package entity

// ValidationOutcome is either Accepted or Rejected with a reason.
// The zero value is a rejection with no reason and should not be used.
type ValidationOutcome struct {
	accepted bool
	reason   string
}

// Accepted is the outcome of a trusted or in-tolerance claim.
func Accepted() ValidationOutcome {
	return ValidationOutcome{accepted: true}
}

// Rejected always carries a human-readable reason.
func Rejected(reason string) ValidationOutcome {
	if reason == "" {
		reason = "rejected"
	}
	return ValidationOutcome{reason: reason}
}

func (v ValidationOutcome) IsAccepted() bool { return v.accepted }

// Reason is empty for Accepted outcomes.
func (v ValidationOutcome) Reason() string { return v.reason }

func (v ValidationOutcome) String() string {
	if v.accepted {
		return "Accepted"
	}
	return "Rejected(" + v.reason + ")"
}

// MarshalText lets outcomes appear in JSON replies and log attributes.
func (v ValidationOutcome) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
