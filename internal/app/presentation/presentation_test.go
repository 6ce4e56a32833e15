package presentation_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/dalemusser/exposite/internal/app/presentation"
	"github.com/dalemusser/exposite/internal/app/store/kv/memkv"
	presentationstore "github.com/dalemusser/exposite/internal/app/store/presentations"
	"github.com/dalemusser/exposite/internal/domain/models"
	"github.com/dalemusser/exposite/internal/testutil"
)

type harness struct {
	f      *testutil.Fixtures
	eng    *presentation.Engine
	group  models.Group
	member []models.Member
}

func newHarness(t *testing.T, members int, rng presentation.Rand) harness {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	f := testutil.NewMemoryFixtures(t)
	g := f.CreateGroup(ctx, "Team A")
	ms := f.CreateMembers(ctx, g.ID, members)
	sessions := presentationstore.New(memkv.New(), testutil.Logger(t))
	return harness{
		f:      f,
		eng:    presentation.New(f.Store(), sessions, rng, testutil.Logger(t)),
		group:  g,
		member: ms,
	}
}

func TestStart(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 3, nil)

	sel, err := h.eng.Start(ctx, h.group.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sel.Exhausted || sel.Member.ID == 0 {
		t.Errorf("Start should select a member, got %+v", sel)
	}
	if sel.Status.TotalCount != 3 || sel.Status.CompletedCount != 0 || sel.Status.State != presentation.Active {
		t.Errorf("status = %+v", sel.Status)
	}

	if _, err := h.eng.Start(ctx, h.group.ID); !errors.Is(err, presentation.ErrSessionActive) {
		t.Errorf("second Start err = %v, want ErrSessionActive", err)
	}
}

func TestStart_EmptyGroup(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 0, nil)
	if _, err := h.eng.Start(ctx, h.group.ID); !errors.Is(err, presentation.ErrNoMembers) {
		t.Errorf("err = %v, want ErrNoMembers", err)
	}
	st, _ := h.eng.Status(ctx, h.group.ID)
	if st.State != presentation.NoSession {
		t.Errorf("state = %v, want no_session", st.State)
	}
}

func TestNext_WithoutSession(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 2, nil)
	if _, err := h.eng.Next(ctx, h.group.ID); !errors.Is(err, presentation.ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestComplete_WithoutSessionIsNoop(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 2, nil)
	st, err := h.eng.Complete(ctx, h.group.ID, h.member[0].ID)
	if err != nil || st.State != presentation.NoSession {
		t.Errorf("Complete = %+v, %v", st, err)
	}
	if got, _ := h.eng.Status(ctx, h.group.ID); got.State != presentation.NoSession {
		t.Errorf("Complete created a session: %+v", got)
	}
}

func TestComplete_Idempotent(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 3, nil)
	if _, err := h.eng.Start(ctx, h.group.ID); err != nil {
		t.Fatal(err)
	}

	id := h.member[1].ID
	first, err := h.eng.Complete(ctx, h.group.ID, id)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.eng.Complete(ctx, h.group.ID, id)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("status changed on repeat: %+v vs %+v", first, second)
	}
	if second.CompletedCount != 1 || second.TotalCount != 3 || second.RemainingCount != 2 {
		t.Errorf("status = %+v", second)
	}
}

func TestExhaustion(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 4, rand.New(rand.NewPCG(7, 11)))

	sel, err := h.eng.Start(ctx, h.group.ID)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int64]bool{}
	for !sel.Exhausted {
		if seen[sel.Member.ID] {
			t.Fatalf("member %d selected twice", sel.Member.ID)
		}
		seen[sel.Member.ID] = true
		if _, err := h.eng.Complete(ctx, h.group.ID, sel.Member.ID); err != nil {
			t.Fatal(err)
		}
		if sel, err = h.eng.Next(ctx, h.group.ID); err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 4 {
		t.Errorf("selected %d members, want 4", len(seen))
	}
	if sel.Member.ID != 0 {
		t.Errorf("exhausted selection carries a member: %+v", sel.Member)
	}
	st, _ := h.eng.Status(ctx, h.group.ID)
	if st.State != presentation.Exhausted || st.RemainingCount != 0 || !st.Exhausted {
		t.Errorf("status = %+v", st)
	}

	if err := h.eng.End(ctx, h.group.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.End(ctx, h.group.ID); err != nil {
		t.Errorf("second End: %v", err)
	}
	if st, _ := h.eng.Status(ctx, h.group.ID); st.State != presentation.NoSession {
		t.Errorf("state after End = %v", st.State)
	}
}

func TestTotalCountStaysPinned(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 3, nil)
	if _, err := h.eng.Start(ctx, h.group.ID); err != nil {
		t.Fatal(err)
	}

	h.f.CreateMember(ctx, h.group.ID, 4, "Late", "Arrival")
	if err := h.f.Store().DeleteMember(ctx, h.member[0].ID, h.group.ID); err != nil {
		t.Fatal(err)
	}
	if err := h.f.Store().DeleteMember(ctx, h.member[1].ID, h.group.ID); err != nil {
		t.Fatal(err)
	}

	st, _ := h.eng.Status(ctx, h.group.ID)
	if st.TotalCount != 3 {
		t.Errorf("totalCount = %d, want 3", st.TotalCount)
	}
}

func TestForget(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 3, nil)
	if _, err := h.eng.Start(ctx, h.group.ID); err != nil {
		t.Fatal(err)
	}
	_, _ = h.eng.Complete(ctx, h.group.ID, h.member[0].ID)
	_, _ = h.eng.Complete(ctx, h.group.ID, h.member[2].ID)

	if err := h.eng.Forget(ctx, h.group.ID, h.member[0].ID); err != nil {
		t.Fatal(err)
	}
	st, _ := h.eng.Status(ctx, h.group.ID)
	if st.CompletedCount != 1 || st.TotalCount != 3 {
		t.Errorf("status = %+v", st)
	}
	if err := h.eng.Forget(ctx, h.group.ID, 999); err != nil {
		t.Errorf("Forget of unknown id: %v", err)
	}
}

// TestSelection_Uniform runs many fresh sessions and checks each member is
// chosen first about equally often, and that a full run visits every member
// exactly once. The chi-square bound is the 0.001 critical value for 4
// degrees of freedom.
func TestSelection_Uniform(t *testing.T) {
	const (
		members  = 5
		trials   = 5000
		critical = 18.467
	)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, members, rand.New(rand.NewPCG(20240601, 42)))

	index := make(map[int64]int, members)
	for i, m := range h.member {
		index[m.ID] = i
	}
	first := make([]int, members)
	positions := make([][]int, members)
	for i := range positions {
		positions[i] = make([]int, members)
	}

	for trial := 0; trial < trials; trial++ {
		sel, err := h.eng.Start(ctx, h.group.ID)
		if err != nil {
			t.Fatal(err)
		}
		first[index[sel.Member.ID]]++

		seen := make(map[int64]bool, members)
		for pos := 0; !sel.Exhausted; pos++ {
			if seen[sel.Member.ID] {
				t.Fatalf("trial %d: member %d repeated", trial, sel.Member.ID)
			}
			seen[sel.Member.ID] = true
			positions[index[sel.Member.ID]][pos]++
			if _, err := h.eng.Complete(ctx, h.group.ID, sel.Member.ID); err != nil {
				t.Fatal(err)
			}
			if sel, err = h.eng.Next(ctx, h.group.ID); err != nil {
				t.Fatal(err)
			}
		}
		if len(seen) != members {
			t.Fatalf("trial %d covered %d members", trial, len(seen))
		}
		if err := h.eng.End(ctx, h.group.ID); err != nil {
			t.Fatal(err)
		}
	}

	if chi := chiSquare(first, trials); chi > critical {
		t.Errorf("first-pick chi-square = %.2f > %.2f; counts %v", chi, critical, first)
	}
	// Every member should land in every slot about equally often too.
	for pos := 0; pos < members; pos++ {
		col := make([]int, members)
		for m := 0; m < members; m++ {
			col[m] = positions[m][pos]
		}
		if chi := chiSquare(col, trials); chi > critical {
			t.Errorf("position %d chi-square = %.2f > %.2f; counts %v", pos, chi, critical, col)
		}
	}
}

func chiSquare(counts []int, total int) float64 {
	expected := float64(total) / float64(len(counts))
	var chi float64
	for _, c := range counts {
		d := float64(c) - expected
		chi += d * d / expected
	}
	return chi
}

// stubRand always returns the last index.
type stubRand struct{}

func (stubRand) IntN(n int) int { return n - 1 }

func TestNext_PicksFromRemaining(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	h := newHarness(t, 3, stubRand{})

	sel, err := h.eng.Start(ctx, h.group.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Member.ID != h.member[2].ID {
		t.Fatalf("first pick = %d, want %d", sel.Member.ID, h.member[2].ID)
	}
	_, _ = h.eng.Complete(ctx, h.group.ID, sel.Member.ID)
	sel, _ = h.eng.Next(ctx, h.group.ID)
	if sel.Member.ID != h.member[1].ID {
		t.Errorf("second pick = %d, want %d", sel.Member.ID, h.member[1].ID)
	}
}
