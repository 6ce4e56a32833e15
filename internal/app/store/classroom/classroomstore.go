// internal/app/store/classroom/classroomstore.go
package classroomstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrNegativeScore    = errors.New("score must be zero or greater")
	ErrInvalidMaxPoints = errors.New("max points must be at least 1")
	ErrUnavailable      = errors.New("storage unavailable")
)

var errNoChange = errors.New("no change")

// Store owns the groups, members and rubricItems tables.
//
// Reads never fail: a table that cannot be read or parsed is returned as
// empty (and logged). Writes are surfaced. One Store serializes its own
// read-modify-write cycles; two processes sharing a backing are
// last-write-wins.
type Store struct {
	kv  kv.Durable
	log *zap.Logger
	mu  sync.Mutex
}

func New(d kv.Durable, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: d, log: log}
}

/* -------------------------------- groups -------------------------------- */

// CreateGroup adds a group with empty member and rubric lists.
func (s *Store) CreateGroup(ctx context.Context, name string) (models.Group, error) {
	var g models.Group
	err := s.mutate(ctx, "create group", writeGroups, func(t *tables) error {
		g = models.Group{
			ID:            nextID(t.groups),
			Name:          name,
			MemberIDs:     []int64{},
			RubricItemIDs: []int64{},
		}
		t.groups = append(t.groups, g)
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, id int64) (models.Group, error) {
	t := s.snapshot(ctx)
	i, ok := t.group(id)
	if !ok {
		return models.Group{}, ErrNotFound
	}
	return t.groups[i].Clone(), nil
}

// FindGroupByName returns the first group whose folded name matches.
func (s *Store) FindGroupByName(ctx context.Context, name string) (models.Group, error) {
	want := text.Fold(strings.TrimSpace(name))
	for _, g := range s.snapshot(ctx).groups {
		if text.Fold(strings.TrimSpace(g.Name)) == want {
			return g.Clone(), nil
		}
	}
	return models.Group{}, ErrNotFound
}

// ListGroups returns every group in insertion order.
func (s *Store) ListGroups(ctx context.Context) []models.Group {
	t := s.snapshot(ctx)
	out := make([]models.Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = g.Clone()
	}
	return out
}

func (s *Store) RenameGroup(ctx context.Context, id int64, name string) error {
	return s.mutate(ctx, "rename group", writeGroups, func(t *tables) error {
		i, ok := t.group(id)
		if !ok {
			return ErrNotFound
		}
		t.groups[i].Name = name
		return nil
	})
}

// DeleteGroup removes the group with its members and rubric items in a
// single write. Deleting a missing group is a no-op.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete group", writeAll, func(t *tables) error {
		changed := false
		if i, ok := t.group(id); ok {
			t.groups = append(t.groups[:i], t.groups[i+1:]...)
			changed = true
		}
		members := t.members[:0]
		for _, m := range t.members {
			if m.GroupID == id {
				changed = true
				continue
			}
			members = append(members, m)
		}
		t.members = members
		items := t.items[:0]
		for _, it := range t.items {
			if it.GroupID == id {
				changed = true
				continue
			}
			items = append(items, it)
		}
		t.items = items
		if !changed {
			return errNoChange
		}
		return nil
	})
}

/* -------------------------------- members ------------------------------- */

// CreateMember adds a member with score 0 to an existing group.
func (s *Store) CreateMember(ctx context.Context, groupID int64, d models.MemberDetails) (models.Member, error) {
	var m models.Member
	err := s.mutate(ctx, "create member", writeMembers, func(t *tables) error {
		if _, ok := t.group(groupID); !ok {
			return ErrNotFound
		}
		m = models.Member{ID: nextID(t.members), GroupID: groupID}.Apply(d)
		t.members = append(t.members, m)
		return nil
	})
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, id int64) (models.Member, error) {
	t := s.snapshot(ctx)
	i, ok := t.member(id)
	if !ok {
		return models.Member{}, ErrNotFound
	}
	return t.members[i], nil
}

// UpdateMember replaces the stored member with m, score included. The
// stored group id is kept.
func (s *Store) UpdateMember(ctx context.Context, m models.Member) error {
	if m.Score < 0 {
		return ErrNegativeScore
	}
	return s.mutate(ctx, "update member", writeMembers, func(t *tables) error {
		i, ok := t.member(m.ID)
		if !ok {
			return ErrNotFound
		}
		m.GroupID = t.members[i].GroupID
		t.members[i] = m
		return nil
	})
}

// EditMember changes roster number and names, preserving the score.
func (s *Store) EditMember(ctx context.Context, id int64, d models.MemberDetails) (models.Member, error) {
	var out models.Member
	err := s.mutate(ctx, "edit member", writeMembers, func(t *tables) error {
		i, ok := t.member(id)
		if !ok {
			return ErrNotFound
		}
		t.members[i] = t.members[i].Apply(d)
		out = t.members[i]
		return nil
	})
	if err != nil {
		return models.Member{}, err
	}
	return out, nil
}

// SetMemberScore overwrites the member's score.
func (s *Store) SetMemberScore(ctx context.Context, id int64, score int) error {
	if score < 0 {
		return ErrNegativeScore
	}
	return s.mutate(ctx, "set member score", writeMembers, func(t *tables) error {
		i, ok := t.member(id)
		if !ok {
			return ErrNotFound
		}
		t.members[i].Score = score
		return nil
	})
}

// DeleteMember removes the member and drops it from its group's list.
// Deleting a missing member is a no-op.
func (s *Store) DeleteMember(ctx context.Context, id, groupID int64) error {
	return s.mutate(ctx, "delete member", writeMembers, func(t *tables) error {
		i, ok := t.member(id)
		if !ok {
			if g, ok := t.group(groupID); ok && t.groups[g].HasMember(id) {
				// Stale list entry; writing rebuilds the list.
				return nil
			}
			return errNoChange
		}
		if t.members[i].GroupID != groupID {
			s.log.Warn("member deleted from a group it does not belong to",
				zap.Int64("member_id", id),
				zap.Int64("group_id", groupID),
				zap.Int64("owner_group_id", t.members[i].GroupID))
		}
		t.members = append(t.members[:i], t.members[i+1:]...)
		return nil
	})
}

// ResetGroupScores sets every member of the group back to 0 and returns how
// many members it touched.
func (s *Store) ResetGroupScores(ctx context.Context, groupID int64) (int, error) {
	n := 0
	err := s.mutate(ctx, "reset group scores", writeMembers, func(t *tables) error {
		for i := range t.members {
			if t.members[i].GroupID == groupID {
				t.members[i].Score = 0
				n++
			}
		}
		if n == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListMembers returns the group's members ordered by list number, ties in
// insertion order.
func (s *Store) ListMembers(ctx context.Context, groupID int64) []models.Member {
	var out []models.Member
	for _, m := range s.snapshot(ctx).members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ListNumber < out[j].ListNumber })
	return out
}

/* ----------------------------- rubric items ----------------------------- */

func (s *Store) CreateRubricItem(ctx context.Context, groupID int64, title, description string, maxPoints int) (models.RubricItem, error) {
	if maxPoints < 1 {
		return models.RubricItem{}, ErrInvalidMaxPoints
	}
	var it models.RubricItem
	err := s.mutate(ctx, "create rubric item", writeItems, func(t *tables) error {
		if _, ok := t.group(groupID); !ok {
			return ErrNotFound
		}
		it = models.RubricItem{
			ID:          nextID(t.items),
			GroupID:     groupID,
			Title:       title,
			Description: description,
			MaxPoints:   maxPoints,
		}
		t.items = append(t.items, it)
		return nil
	})
	if err != nil {
		return models.RubricItem{}, err
	}
	return it, nil
}

func (s *Store) GetRubricItem(ctx context.Context, id int64) (models.RubricItem, error) {
	t := s.snapshot(ctx)
	i, ok := t.item(id)
	if !ok {
		return models.RubricItem{}, ErrNotFound
	}
	return t.items[i], nil
}

// UpdateRubricItem replaces title, description and max points. The stored
// group id is kept.
func (s *Store) UpdateRubricItem(ctx context.Context, it models.RubricItem) error {
	if it.MaxPoints < 1 {
		return ErrInvalidMaxPoints
	}
	return s.mutate(ctx, "update rubric item", writeItems, func(t *tables) error {
		i, ok := t.item(it.ID)
		if !ok {
			return ErrNotFound
		}
		it.GroupID = t.items[i].GroupID
		t.items[i] = it
		return nil
	})
}

// DeleteRubricItem removes the item and drops it from its group's list.
// Deleting a missing item is a no-op.
func (s *Store) DeleteRubricItem(ctx context.Context, id, groupID int64) error {
	return s.mutate(ctx, "delete rubric item", writeItems, func(t *tables) error {
		i, ok := t.item(id)
		if !ok {
			return errNoChange
		}
		if t.items[i].GroupID != groupID {
			s.log.Warn("rubric item deleted from a group it does not belong to",
				zap.Int64("rubric_item_id", id),
				zap.Int64("group_id", groupID))
		}
		t.items = append(t.items[:i], t.items[i+1:]...)
		return nil
	})
}

// ListRubricItems returns the group's rubric in insertion order.
func (s *Store) ListRubricItems(ctx context.Context, groupID int64) []models.RubricItem {
	var out []models.RubricItem
	for _, it := range s.snapshot(ctx).items {
		if it.GroupID == groupID {
			out = append(out, it)
		}
	}
	return out
}

/* ------------------------------ diagnostics ----------------------------- */

// Check reports every table that cannot be read or parsed. A nil result
// means the empty tables a read returned are really empty.
func (s *Store) Check(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if _, err := readTable[models.Group](ctx, s.kv, KeyGroups); err != nil {
		errs = append(errs, err)
	}
	if _, err := readTable[models.Member](ctx, s.kv, KeyMembers); err != nil {
		errs = append(errs, err)
	}
	if _, err := readTable[models.RubricItem](ctx, s.kv, KeyRubricItems); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("check tables: %w", errors.Join(errs...))
}
