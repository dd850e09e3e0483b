package domain

import (
	"errors"

	"example.com/extracurricular/internal/observability"
)

func recordSignupOutcome(err error) {
	switch {
	case err == nil:
		observability.RecordSignup(observability.OutcomeOK)
	case errors.Is(err, ErrActivityNotFound):
		observability.RecordSignup(observability.OutcomeNotFound)
	case errors.Is(err, ErrAlreadySignedUp):
		observability.RecordSignup(observability.OutcomeDuplicate)
	case errors.Is(err, ErrActivityFull):
		observability.RecordSignup(observability.OutcomeFull)
	default:
		observability.RecordSignup(observability.OutcomeError)
	}
}

func recordRosterSize(a Activity) {
	observability.RecordRosterSize(a.Name, len(a.Participants))
}
