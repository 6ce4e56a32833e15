// Package scoring builds rubric drafts for a presentation and commits their
// totals as member scores.
package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/exposite/internal/app/presentation"
	"github.com/dalemusser/exposite/internal/domain/models"
	"go.uber.org/zap"
)

var (
	ErrUnknownItem = errors.New("rubric item is not part of this draft")
	ErrEmptyRubric = errors.New("group has no rubric items")
	ErrIncomplete  = errors.New("every rubric item must be scored")
	ErrWrongGroup  = errors.New("member does not belong to the draft's group")
)

// RubricLister returns a group's rubric in display order.
type RubricLister interface {
	ListRubricItems(ctx context.Context, groupID int64) []models.RubricItem
}

// ScoreWriter reads members and overwrites their scores.
type ScoreWriter interface {
	GetMember(ctx context.Context, id int64) (models.Member, error)
	SetMemberScore(ctx context.Context, id int64, score int) error
}

// Completer records that a member has presented.
type Completer interface {
	Complete(ctx context.Context, groupID, memberID int64) (presentation.Status, error)
}

// Result of a commit.
type Result struct {
	MemberID int64
	Score    int
	Status   presentation.Status
}

type Service struct {
	rubric    RubricLister
	scores    ScoreWriter
	completer Completer
	log       *zap.Logger
}

func New(rubric RubricLister, scores ScoreWriter, completer Completer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rubric: rubric, scores: scores, completer: completer, log: log}
}

// InitDraft returns one unset entry per rubric item of the group.
func (s *Service) InitDraft(ctx context.Context, groupID int64) Draft {
	items := s.rubric.ListRubricItems(ctx, groupID)
	d := Draft{GroupID: groupID, Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		d.Entries = append(d.Entries, Entry{
			RubricItemID: it.ID,
			Title:        it.Title,
			Description:  it.Description,
			MaxPoints:    it.MaxPoints,
			Awarded:      models.Unset(),
		})
	}
	return d
}

// SetItemScore returns a copy of d with the item's points parsed from raw.
// Out-of-range input is clamped, never rejected.
func (s *Service) SetItemScore(d Draft, itemID int64, raw string) (Draft, error) {
	for i, e := range d.Entries {
		if e.RubricItemID != itemID {
			continue
		}
		out := d.clone()
		out.Entries[i].Awarded = parsePoints(raw, e.MaxPoints)
		return out, nil
	}
	return d, ErrUnknownItem
}

// Commit overwrites the member's score with the draft total and marks the
// member completed in the current session. When only the marking fails, the
// error says the score was saved and the Result carries it without a Status.
func (s *Service) Commit(ctx context.Context, d Draft, memberID int64) (Result, error) {
	if len(d.Entries) == 0 {
		return Result{}, ErrEmptyRubric
	}
	if !d.IsComplete() {
		return Result{}, ErrIncomplete
	}
	m, err := s.scores.GetMember(ctx, memberID)
	if err != nil {
		return Result{}, fmt.Errorf("commit score: %w", err)
	}
	if m.GroupID != d.GroupID {
		return Result{}, ErrWrongGroup
	}

	total := d.Total()
	if err := s.scores.SetMemberScore(ctx, memberID, total); err != nil {
		return Result{}, fmt.Errorf("commit score: %w", err)
	}
	st, err := s.completer.Complete(ctx, d.GroupID, memberID)
	if err != nil {
		// The score is already stored; only the session was not advanced.
		s.log.Warn("score saved but member not marked presented",
			zap.Int64("group_id", d.GroupID),
			zap.Int64("member_id", memberID),
			zap.Error(err))
		return Result{MemberID: memberID, Score: total}, fmt.Errorf("score saved; mark completed: %w", err)
	}
	s.log.Info("score committed",
		zap.Int64("group_id", d.GroupID),
		zap.Int64("member_id", memberID),
		zap.Int("score", total))
	return Result{MemberID: memberID, Score: total, Status: st}, nil
}
