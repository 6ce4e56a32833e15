package exposite

import (
	"context"
	"fmt"
	"io"

	"github.com/dalemusser/exposite/internal/app/presentation"
	"github.com/dalemusser/exposite/internal/app/scoring"
	classroomstore "github.com/dalemusser/exposite/internal/app/store/classroom"
	"github.com/dalemusser/exposite/internal/app/store/kv"
	presentationstore "github.com/dalemusser/exposite/internal/app/store/presentations"
	"github.com/dalemusser/exposite/internal/app/system/export"
	"github.com/dalemusser/exposite/internal/app/system/formval"
	"github.com/dalemusser/exposite/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Tab is one browser tab. Its presentation sessions are private to it and
// last until Tab.Close or tab_ttl. Groups, members and rubrics are shared
// through the App's durable storage, last write wins.
type Tab struct {
	app     *App
	id      string
	eph     kv.Ephemeral
	store   *classroomstore.Store
	engine  *presentation.Engine
	scoring *scoring.Service
	log     *zap.Logger
}

func newTab(a *App, id string, eph kv.Ephemeral) *Tab {
	log := a.log.With(zap.String("tab_id", id))
	engine := presentation.New(a.store, presentationstore.New(eph, log), a.rng, log)
	return &Tab{
		app:     a,
		id:      id,
		eph:     eph,
		store:   a.store,
		engine:  engine,
		scoring: scoring.New(a.store, a.store, engine, log),
		log:     log,
	}
}

// ID is the tab's session scope.
func (t *Tab) ID() string { return t.id }

func (t *Tab) short(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Short(), t.log, op)
}

func (t *Tab) long(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(ctx, timeouts.Long(), t.log, op)
}

// Close discards the tab's sessions.
func (t *Tab) Close(ctx context.Context) error {
	t.app.forget(t.id)
	ctx, cancel := t.short(ctx, "close tab")
	defer cancel()
	return t.discard(ctx)
}

func (t *Tab) discard(ctx context.Context) error {
	p, ok := t.eph.(kv.Purger)
	if !ok {
		return nil
	}
	if err := p.Purge(ctx); err != nil {
		return fmt.Errorf("close tab %s: %w", t.id, err)
	}
	return nil
}

/* -------------------------------- groups -------------------------------- */

func (t *Tab) CreateGroup(ctx context.Context, f GroupForm) (Group, error) {
	name, err := formval.Group(f)
	if err != nil {
		return Group{}, err
	}
	ctx, cancel := t.short(ctx, "create group")
	defer cancel()
	return t.store.CreateGroup(ctx, name)
}

func (t *Tab) RenameGroup(ctx context.Context, id int64, f GroupForm) error {
	name, err := formval.Group(f)
	if err != nil {
		return err
	}
	ctx, cancel := t.short(ctx, "rename group")
	defer cancel()
	return t.store.RenameGroup(ctx, id, name)
}

func (t *Tab) GetGroup(ctx context.Context, id int64) (Group, error) {
	ctx, cancel := t.short(ctx, "get group")
	defer cancel()
	return t.store.GetGroup(ctx, id)
}

func (t *Tab) FindGroupByName(ctx context.Context, name string) (Group, error) {
	ctx, cancel := t.short(ctx, "find group")
	defer cancel()
	return t.store.FindGroupByName(ctx, name)
}

func (t *Tab) ListGroups(ctx context.Context) []Group {
	ctx, cancel := t.short(ctx, "list groups")
	defer cancel()
	return t.store.ListGroups(ctx)
}

// DeleteGroup removes the group with its members and rubric, and ends this
// tab's session for it.
func (t *Tab) DeleteGroup(ctx context.Context, id int64) error {
	ctx, cancel := t.long(ctx, "delete group")
	defer cancel()
	if err := t.store.DeleteGroup(ctx, id); err != nil {
		return err
	}
	return t.engine.End(ctx, id)
}

/* -------------------------------- members ------------------------------- */

func (t *Tab) AddMember(ctx context.Context, groupID int64, f MemberForm) (Member, error) {
	d, err := formval.Member(f)
	if err != nil {
		return Member{}, err
	}
	ctx, cancel := t.long(ctx, "add member")
	defer cancel()
	return t.store.CreateMember(ctx, groupID, d)
}

// EditMember changes roster number and names. The score is kept.
func (t *Tab) EditMember(ctx context.Context, id int64, f MemberForm) (Member, error) {
	d, err := formval.Member(f)
	if err != nil {
		return Member{}, err
	}
	ctx, cancel := t.short(ctx, "edit member")
	defer cancel()
	return t.store.EditMember(ctx, id, d)
}

func (t *Tab) GetMember(ctx context.Context, id int64) (Member, error) {
	ctx, cancel := t.short(ctx, "get member")
	defer cancel()
	return t.store.GetMember(ctx, id)
}

// ListMembers is the roster ordered by list number.
func (t *Tab) ListMembers(ctx context.Context, groupID int64) []Member {
	ctx, cancel := t.short(ctx, "list members")
	defer cancel()
	return t.store.ListMembers(ctx, groupID)
}

// DeleteMember removes the member and drops it from this tab's session. The
// session total stays as it was when the session started.
func (t *Tab) DeleteMember(ctx context.Context, id, groupID int64) error {
	ctx, cancel := t.short(ctx, "delete member")
	defer cancel()
	if err := t.store.DeleteMember(ctx, id, groupID); err != nil {
		return err
	}
	return t.engine.Forget(ctx, groupID, id)
}

// ResetScores zeroes every member of the group. Sessions are untouched.
func (t *Tab) ResetScores(ctx context.Context, groupID int64) (int, error) {
	ctx, cancel := t.short(ctx, "reset scores")
	defer cancel()
	return t.store.ResetGroupScores(ctx, groupID)
}

// ImportRoster adds every member listed in a roster CSV. Nothing is added
// when any line is rejected.
func (t *Tab) ImportRoster(ctx context.Context, groupID int64, r io.Reader) ([]Member, error) {
	rows, err := export.ReadRoster(r)
	if err != nil {
		return nil, err
	}
	ctx, cancel := t.long(ctx, "import roster")
	defer cancel()
	if _, err := t.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(rows))
	for _, d := range rows {
		m, err := t.store.CreateMember(ctx, groupID, d)
		if err != nil {
			return out, fmt.Errorf("import roster after %d members: %w", len(out), err)
		}
		out = append(out, m)
	}
	t.log.Info("roster imported", zap.Int64("group_id", groupID), zap.Int("members", len(out)))
	return out, nil
}

/* ----------------------------- rubric items ----------------------------- */

func (t *Tab) AddRubricItem(ctx context.Context, groupID int64, f RubricItemForm) (RubricItem, error) {
	f, err := formval.RubricItem(f)
	if err != nil {
		return RubricItem{}, err
	}
	ctx, cancel := t.short(ctx, "add rubric item")
	defer cancel()
	return t.store.CreateRubricItem(ctx, groupID, f.Title, f.Description, f.MaxPoints)
}

func (t *Tab) UpdateRubricItem(ctx context.Context, id int64, f RubricItemForm) error {
	f, err := formval.RubricItem(f)
	if err != nil {
		return err
	}
	ctx, cancel := t.short(ctx, "update rubric item")
	defer cancel()
	it, err := t.store.GetRubricItem(ctx, id)
	if err != nil {
		return err
	}
	it.Title, it.Description, it.MaxPoints = f.Title, f.Description, f.MaxPoints
	return t.store.UpdateRubricItem(ctx, it)
}

func (t *Tab) DeleteRubricItem(ctx context.Context, id, groupID int64) error {
	ctx, cancel := t.short(ctx, "delete rubric item")
	defer cancel()
	return t.store.DeleteRubricItem(ctx, id, groupID)
}

func (t *Tab) ListRubricItems(ctx context.Context, groupID int64) []RubricItem {
	ctx, cancel := t.short(ctx, "list rubric items")
	defer cancel()
	return t.store.ListRubricItems(ctx, groupID)
}

/* ------------------------------- sessions ------------------------------- */

// StartSession opens this tab's session for the group and picks the first
// presenter.
func (t *Tab) StartSession(ctx context.Context, groupID int64) (Selection, error) {
	ctx, cancel := t.short(ctx, "start session")
	defer cancel()
	return t.engine.Start(ctx, groupID)
}

// NextPresenter picks among members who have not presented yet.
func (t *Tab) NextPresenter(ctx context.Context, groupID int64) (Selection, error) {
	ctx, cancel := t.short(ctx, "next presenter")
	defer cancel()
	return t.engine.Next(ctx, groupID)
}

func (t *Tab) SessionStatus(ctx context.Context, groupID int64) (Status, error) {
	ctx, cancel := t.short(ctx, "session status")
	defer cancel()
	return t.engine.Status(ctx, groupID)
}

// EndSession discards the group's session. It succeeds without one.
func (t *Tab) EndSession(ctx context.Context, groupID int64) error {
	ctx, cancel := t.short(ctx, "end session")
	defer cancel()
	return t.engine.End(ctx, groupID)
}

/* -------------------------------- scoring ------------------------------- */

// NewDraft starts scoring a presentation against the group's rubric.
func (t *Tab) NewDraft(ctx context.Context, groupID int64) Draft {
	ctx, cancel := t.short(ctx, "new draft")
	defer cancel()
	return t.scoring.InitDraft(ctx, groupID)
}

// ScoreItem returns the draft with raw applied to one item. Input is
// clamped to the item's range; "" clears it.
func (t *Tab) ScoreItem(d Draft, itemID int64, raw string) (Draft, error) {
	return t.scoring.SetItemScore(d, itemID, raw)
}

// CommitScore saves the draft total as the member's score and marks them
// presented in this tab's session.
func (t *Tab) CommitScore(ctx context.Context, d Draft, memberID int64) (Result, error) {
	ctx, cancel := t.short(ctx, "commit score")
	defer cancel()
	return t.scoring.Commit(ctx, d, memberID)
}

/* -------------------------------- export -------------------------------- */

// ExportRows returns the group's rows in the requested order.
func (t *Tab) ExportRows(ctx context.Context, groupID int64, order Order) ([]Row, error) {
	ctx, cancel := t.short(ctx, "export rows")
	defer cancel()
	if _, err := t.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return export.Rows(t.store.ListMembers(ctx, groupID), order), nil
}

// ExportCSV writes the group's rows as CSV.
func (t *Tab) ExportCSV(ctx context.Context, w io.Writer, groupID int64, order Order) error {
	ctx, cancel := t.short(ctx, "export csv")
	defer cancel()
	g, err := t.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	rows := export.Rows(t.store.ListMembers(ctx, groupID), order)
	if err := export.WriteCSV(w, g.Name, rows); err != nil {
		return fmt.Errorf("export %s: %w", g.Name, err)
	}
	return nil
}
