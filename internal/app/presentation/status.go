package presentation

import "github.com/dalemusser/exposite/internal/domain/models"

// State of a group's session.
type State int

const (
	NoSession State = iota
	Active
	Exhausted
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no_session"
	case Active:
		return "active"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Status is the observable counter set. RemainingCount is derived from the
// pinned TotalCount and may drift from the live roster.
type Status struct {
	State          State
	TotalCount     int
	CompletedCount int
	RemainingCount int
	Exhausted      bool
}

// Selection is the outcome of Start or Next.
type Selection struct {
	Member    models.Member
	Exhausted bool
	Status    Status
}

func statusOf(ps models.PresentationSession, ok bool) Status {
	if !ok {
		return Status{State: NoSession}
	}
	st := Status{
		State:          Active,
		TotalCount:     ps.TotalCount,
		CompletedCount: ps.CompletedCount(),
		RemainingCount: ps.RemainingCount(),
	}
	if st.RemainingCount <= 0 {
		st.State = Exhausted
		st.Exhausted = true
	}
	return st
}
