// Package presentation runs the random-without-replacement selection of
// members for a presentation session.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/dalemusser/exposite/internal/domain/models"
	"go.uber.org/zap"
)

var (
	ErrNoMembers     = errors.New("group has no members")
	ErrSessionActive = errors.New("a session is already active for this group")
	ErrNoSession     = errors.New("no active session for this group")
)

// MemberLister returns a group's current members.
type MemberLister interface {
	ListMembers(ctx context.Context, groupID int64) []models.Member
}

// SessionStore persists one session per group.
type SessionStore interface {
	Load(ctx context.Context, groupID int64) (models.PresentationSession, bool, error)
	Save(ctx context.Context, groupID int64, s models.PresentationSession) error
	Clear(ctx context.Context, groupID int64) error
}

// Rand picks an index in [0, n).
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Engine is the session state machine. It holds no state of its own; every
// call reloads the session from the store.
type Engine struct {
	members  MemberLister
	sessions SessionStore
	rng      Rand
	log      *zap.Logger
}

// New builds an Engine. A nil rng uses the math/rand/v2 global source.
func New(members MemberLister, sessions SessionStore, rng Rand, log *zap.Logger) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{members: members, sessions: sessions, rng: rng, log: log}
}

// Start opens a session pinned to the group's current member count and
// selects the first presenter.
func (e *Engine) Start(ctx context.Context, groupID int64) (Selection, error) {
	members := e.members.ListMembers(ctx, groupID)
	if len(members) == 0 {
		return Selection{}, ErrNoMembers
	}
	if _, ok, err := e.sessions.Load(ctx, groupID); err != nil {
		return Selection{}, fmt.Errorf("start session: %w", err)
	} else if ok {
		return Selection{}, ErrSessionActive
	}

	ps := models.PresentationSession{
		Active:       true,
		CompletedIDs: []int64{},
		TotalCount:   len(members),
	}
	if err := e.sessions.Save(ctx, groupID, ps); err != nil {
		return Selection{}, fmt.Errorf("start session: %w", err)
	}
	e.log.Info("presentation session started",
		zap.Int64("group_id", groupID),
		zap.Int("total_count", ps.TotalCount))

	return e.pick(ps, members), nil
}

// Next selects uniformly among members not yet completed. When none remain
// the selection is marked exhausted and carries no member.
func (e *Engine) Next(ctx context.Context, groupID int64) (Selection, error) {
	ps, ok, err := e.sessions.Load(ctx, groupID)
	if err != nil {
		return Selection{}, fmt.Errorf("next presenter: %w", err)
	}
	if !ok {
		return Selection{}, ErrNoSession
	}
	return e.pick(ps, e.members.ListMembers(ctx, groupID)), nil
}

func (e *Engine) pick(ps models.PresentationSession, members []models.Member) Selection {
	remaining := make([]models.Member, 0, len(members))
	for _, m := range members {
		if !ps.HasCompleted(m.ID) {
			remaining = append(remaining, m)
		}
	}
	st := statusOf(ps, true)
	if len(remaining) == 0 {
		st.State = Exhausted
		st.Exhausted = true
		return Selection{Exhausted: true, Status: st}
	}
	return Selection{Member: remaining[e.rng.IntN(len(remaining))], Status: st}
}

// Complete marks a member as presented. Completing twice is a no-op, and so
// is completing without a session. It never selects the next presenter.
func (e *Engine) Complete(ctx context.Context, groupID, memberID int64) (Status, error) {
	ps, ok, err := e.sessions.Load(ctx, groupID)
	if err != nil {
		return Status{}, fmt.Errorf("complete member: %w", err)
	}
	if !ok {
		return Status{State: NoSession}, nil
	}
	if ps.HasCompleted(memberID) {
		return statusOf(ps, true), nil
	}
	ps.CompletedIDs = append(ps.CompletedIDs, memberID)
	if err := e.sessions.Save(ctx, groupID, ps); err != nil {
		return Status{}, fmt.Errorf("complete member: %w", err)
	}
	st := statusOf(ps, true)
	e.log.Info("presenter completed",
		zap.Int64("group_id", groupID),
		zap.Int64("member_id", memberID),
		zap.Int("completed", st.CompletedCount),
		zap.Int("remaining", st.RemainingCount))
	return st, nil
}

// Forget drops a deleted member from the completed list. The pinned total is
// left alone.
func (e *Engine) Forget(ctx context.Context, groupID, memberID int64) error {
	ps, ok, err := e.sessions.Load(ctx, groupID)
	if err != nil {
		return fmt.Errorf("forget member: %w", err)
	}
	if !ok || !ps.HasCompleted(memberID) {
		return nil
	}
	kept := ps.CompletedIDs[:0]
	for _, id := range ps.CompletedIDs {
		if id != memberID {
			kept = append(kept, id)
		}
	}
	ps.CompletedIDs = kept
	if err := e.sessions.Save(ctx, groupID, ps); err != nil {
		return fmt.Errorf("forget member: %w", err)
	}
	return nil
}

// End discards the group's session. Ending without a session succeeds.
func (e *Engine) End(ctx context.Context, groupID int64) error {
	if err := e.sessions.Clear(ctx, groupID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	e.log.Info("presentation session ended", zap.Int64("group_id", groupID))
	return nil
}

// Status reports the counters for the group's session.
func (e *Engine) Status(ctx context.Context, groupID int64) (Status, error) {
	ps, ok, err := e.sessions.Load(ctx, groupID)
	if err != nil {
		return Status{}, fmt.Errorf("session status: %w", err)
	}
	return statusOf(ps, ok), nil
}
