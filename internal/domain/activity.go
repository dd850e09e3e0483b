package domain

import "time"

// Activity is a named extracurricular offering and its current roster.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	// Participants holds emails in signup order.
	Participants []string
}

// HasParticipant reports whether email is already on the roster.
func (a Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// Full reports whether the roster has reached MaxParticipants.
func (a Activity) Full() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// Clone returns a copy whose roster does not alias the receiver's.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = append([]string(nil), a.Participants...)
	return out
}

// SignupRecord describes a successful signup.
type SignupRecord struct {
	ActivityName    string
	Email           string
	RosterSize      int
	MaxParticipants int
	SignedUpAt      time.Time
}
