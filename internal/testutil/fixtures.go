package testutil

import (
	"context"
	"testing"

	classroomstore "github.com/dalemusser/exposite/internal/app/store/classroom"
	"github.com/dalemusser/exposite/internal/app/store/kv/memkv"
	"github.com/dalemusser/exposite/internal/domain/models"
)

// Fixtures provides helper methods for creating classroom test data.
type Fixtures struct {
	store *classroomstore.Store
	t     *testing.T
}

// NewFixtures wraps an existing store.
func NewFixtures(t *testing.T, store *classroomstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{store: store, t: t}
}

// NewMemoryFixtures builds fixtures over a fresh in-memory store.
func NewMemoryFixtures(t *testing.T) *Fixtures {
	t.Helper()
	return NewFixtures(t, classroomstore.New(memkv.New(), Logger(t)))
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() *classroomstore.Store {
	return f.store
}

// CreateGroup creates a group with the given name.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()
	g, err := f.store.CreateGroup(ctx, name)
	if err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMember creates a member with only a first name and paternal surname.
func (f *Fixtures) CreateMember(ctx context.Context, groupID int64, listNumber int, first, paternal string) models.Member {
	f.t.Helper()
	m, err := f.store.CreateMember(ctx, groupID, models.MemberDetails{
		ListNumber:      listNumber,
		FirstName:       first,
		PaternalSurname: paternal,
	})
	if err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateMembers creates n members numbered 1..n.
func (f *Fixtures) CreateMembers(ctx context.Context, groupID int64, n int) []models.Member {
	f.t.Helper()
	out := make([]models.Member, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, f.CreateMember(ctx, groupID, i, "Student", string(rune('A'+(i-1)%26))))
	}
	return out
}

// CreateRubricItem creates a rubric item with an empty description.
func (f *Fixtures) CreateRubricItem(ctx context.Context, groupID int64, title string, maxPoints int) models.RubricItem {
	f.t.Helper()
	it, err := f.store.CreateRubricItem(ctx, groupID, title, "", maxPoints)
	if err != nil {
		f.t.Fatalf("failed to create test rubric item: %v", err)
	}
	return it
}
