package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunContext struct {
	ID        uuid.UUID
	StartedAt time.Time
	Debug     bool
	Manual    bool
}

type Outcome string

const (
	OutcomeAlreadySignedIn Outcome = "AlreadySignedIn"
	OutcomeSignedIn        Outcome = "SignedIn"
	OutcomeUnverified      Outcome = "Unverified"
	OutcomeSignInFailed    Outcome = "SignInFailed"
	OutcomeError           Outcome = "Error"
)

// Succeeded reports whether attendance is known to be recorded.
func (o Outcome) Succeeded() bool {
	return o == OutcomeAlreadySignedIn || o == OutcomeSignedIn
}

type State string

const (
	StateUnknown         State = "unknown"
	StateAlreadySignedIn State = "already_signed_in"
	StateNeedsSignIn     State = "needs_sign_in"
	StateLocationPending State = "location_pending"
	StateVerified        State = "verified"
)

type Transition struct {
	From State
	To   State
	At   time.Time
	Note string
}

type WorkflowResult struct {
	Outcome     Outcome
	State       State
	Indicator   string
	Location    string
	Transitions []Transition
}

type Report struct {
	Run        RunContext
	Outcome    Outcome
	Detail     string
	Error      string
	URL        string
	Title      string
	ExitCode   int
	FinishedAt time.Time
}

// Element is a DOM node found by a browser query. Selector addresses exactly
// this node for follow-up actions; Index is its position in document order
// among the query's matches.
type Element struct {
	Selector string
	Index    int
	Tag      string
	Text     string
	OwnText  string
	Value    string
	Visible  bool
	Depth    int
}

type PageState struct {
	URL       string
	Title     string
	Timestamp time.Time
}
