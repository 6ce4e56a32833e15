// internal/app/store/classroom/tables.go
package classroomstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/domain/models"
	"go.uber.org/zap"
)

// Durable keys of the three tables. Each holds a JSON array.
const (
	KeyGroups      = "groups"
	KeyMembers     = "members"
	KeyRubricItems = "rubricItems"
)

// CorruptError reports a table whose stored bytes do not parse.
type CorruptError struct {
	Table string
	Err   error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("table %s is corrupt: %v", e.Table, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// tables is one consistent snapshot of the store.
type tables struct {
	groups  []models.Group
	members []models.Member
	items   []models.RubricItem
}

func readTable[T any](ctx context.Context, d kv.Durable, key string) ([]T, error) {
	raw, err := d.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &CorruptError{Table: key, Err: err}
	}
	return rows, nil
}

// load reads every table. Unreadable or corrupt tables come back empty and
// are logged. The returned error is the first backing failure (never a
// CorruptError): mutations must not build on a table they could not read,
// while a corrupt table is treated as empty and replaced on the next write.
func (s *Store) load(ctx context.Context) (tables, error) {
	var (
		t     tables
		first error
	)
	note := func(key string, err error) {
		if err == nil {
			return
		}
		var ce *CorruptError
		if errors.As(err, &ce) {
			s.log.Error("table corrupt; treating as empty", zap.String("table", key), zap.Error(err))
			return
		}
		s.log.Warn("table unreadable; treating as empty", zap.String("table", key), zap.Error(err))
		if first == nil {
			first = err
		}
	}

	var err error
	t.groups, err = readTable[models.Group](ctx, s.kv, KeyGroups)
	note(KeyGroups, err)
	t.members, err = readTable[models.Member](ctx, s.kv, KeyMembers)
	note(KeyMembers, err)
	t.items, err = readTable[models.RubricItem](ctx, s.kv, KeyRubricItems)
	note(KeyRubricItems, err)
	return t, first
}

// syncGroupLists rebuilds every group's id lists from the foreign keys.
func (t *tables) syncGroupLists() {
	memberIDs := make(map[int64][]int64, len(t.groups))
	for _, m := range t.members {
		memberIDs[m.GroupID] = append(memberIDs[m.GroupID], m.ID)
	}
	itemIDs := make(map[int64][]int64, len(t.groups))
	for _, it := range t.items {
		itemIDs[it.GroupID] = append(itemIDs[it.GroupID], it.ID)
	}
	for i := range t.groups {
		id := t.groups[i].ID
		t.groups[i].MemberIDs = append(make([]int64, 0, len(memberIDs[id])), memberIDs[id]...)
		t.groups[i].RubricItemIDs = append(make([]int64, 0, len(itemIDs[id])), itemIDs[id]...)
	}
}

func (t *tables) group(id int64) (int, bool) {
	for i, g := range t.groups {
		if g.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (t *tables) member(id int64) (int, bool) {
	for i, m := range t.members {
		if m.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (t *tables) item(id int64) (int, bool) {
	for i, it := range t.items {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

func marshalTable[T any](key string, rows []T) (kv.Entry, error) {
	if rows == nil {
		rows = []T{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return kv.Entry{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Entry{Key: key, Value: b}, nil
}

// table flags for write.
const (
	writeGroups = 1 << iota
	writeMembers
	writeItems
	writeAll = writeGroups | writeMembers | writeItems
)

// write stores the selected tables in one Put. Group lists are always
// rebuilt first and the groups table is always written.
func (s *Store) write(ctx context.Context, t *tables, which int) error {
	t.syncGroupLists()
	which |= writeGroups

	var entries []kv.Entry
	add := func(e kv.Entry, err error) error {
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	}
	if err := add(marshalTable(KeyGroups, t.groups)); err != nil {
		return err
	}
	if which&writeMembers != 0 {
		if err := add(marshalTable(KeyMembers, t.members)); err != nil {
			return err
		}
	}
	if which&writeItems != 0 {
		if err := add(marshalTable(KeyRubricItems, t.items)); err != nil {
			return err
		}
	}
	if err := s.kv.Put(ctx, entries...); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// mutate runs fn against a fresh snapshot and writes the tables it names.
// fn returning errNoChange skips the write.
func (s *Store) mutate(ctx context.Context, op string, which int, fn func(t *tables) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(&t); err != nil {
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	if err := s.write(ctx, &t, which); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// snapshot reads every table for a read-only operation.
func (s *Store) snapshot(ctx context.Context) tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _ := s.load(ctx)
	return t
}

type idRow interface {
	models.Group | models.Member | models.RubricItem
}

func rowID[T idRow](r T) int64 {
	switch v := any(r).(type) {
	case models.Group:
		return v.ID
	case models.Member:
		return v.ID
	case models.RubricItem:
		return v.ID
	}
	return 0
}

// nextID is the largest id in rows plus one, or 1 for an empty table.
func nextID[T idRow](rows []T) int64 {
	var top int64
	for _, r := range rows {
		if id := rowID(r); id > top {
			top = id
		}
	}
	return top + 1
}
