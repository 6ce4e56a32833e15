// internal/domain/models/presentation.go
package models

// PresentationSession is the tab-scoped state of a presentation run for one
// group.
//
// TotalCount is captured when the session starts and is never recalculated,
// even if members are added or removed while the session is active.
type PresentationSession struct {
	Active       bool    `json:"active"`
	CompletedIDs []int64 `json:"completedIds"`
	TotalCount   int     `json:"totalCount"`
}

// HasCompleted reports whether memberID already presented in this session.
func (s PresentationSession) HasCompleted(memberID int64) bool {
	for _, id := range s.CompletedIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// CompletedCount is the number of members that presented.
func (s PresentationSession) CompletedCount() int {
	return len(s.CompletedIDs)
}

// RemainingCount is TotalCount minus CompletedCount. It can drift from the
// live roster when the roster changes mid-session.
func (s PresentationSession) RemainingCount() int {
	return s.TotalCount - len(s.CompletedIDs)
}
