package exposite_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/exposite"
	"github.com/dalemusser/exposite/internal/testutil"
)

func memoryConfig() exposite.Config {
	cfg := exposite.DefaultConfig()
	cfg.DurableBackend = "memory"
	return cfg
}

func openApp(t *testing.T, cfg exposite.Config) *exposite.App {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	app, err := exposite.OpenWithConfig(ctx, cfg, exposite.WithLogger(testutil.Logger(t)))
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app
}

func loggedInTab(t *testing.T, app *exposite.App) *exposite.Tab {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := app.Login(ctx, "Profe Marta"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	tab, err := app.NewTab(ctx)
	if err != nil {
		t.Fatalf("NewTab: %v", err)
	}
	return tab
}

type teamA struct {
	group   exposite.Group
	members []exposite.Member
	items   []exposite.RubricItem
}

func seedTeamA(t *testing.T, ctx context.Context, tab *exposite.Tab) teamA {
	t.Helper()
	g, err := tab.CreateGroup(ctx, exposite.GroupForm{Name: "Team A"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	var out teamA
	out.group = g
	for i, name := range []string{"Ana", "Beto", "Carla"} {
		m, err := tab.AddMember(ctx, g.ID, exposite.MemberForm{ListNumber: i + 1, FirstName: name, PaternalSurname: "Ruiz"})
		if err != nil {
			t.Fatalf("AddMember: %v", err)
		}
		out.members = append(out.members, m)
	}
	for _, f := range []exposite.RubricItemForm{{Title: "Content", MaxPoints: 10}, {Title: "Delivery", MaxPoints: 20}} {
		it, err := tab.AddRubricItem(ctx, g.ID, f)
		if err != nil {
			t.Fatalf("AddRubricItem: %v", err)
		}
		out.items = append(out.items, it)
	}
	return out
}

func score(t *testing.T, ctx context.Context, tab *exposite.Tab, groupID, memberID int64, raws ...string) exposite.Result {
	t.Helper()
	d := tab.NewDraft(ctx, groupID)
	for i, raw := range raws {
		var err error
		if d, err = tab.ScoreItem(d, d.Entries[i].RubricItemID, raw); err != nil {
			t.Fatalf("ScoreItem: %v", err)
		}
	}
	res, err := tab.CommitScore(ctx, d, memberID)
	if err != nil {
		t.Fatalf("CommitScore: %v", err)
	}
	return res
}

func TestNewTab_RequiresLogin(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	app := openApp(t, memoryConfig())

	if _, err := app.NewTab(ctx); !errors.Is(err, exposite.ErrNotLoggedIn) {
		t.Fatalf("NewTab before login err = %v", err)
	}
	if err := app.Login(ctx, "   "); !errors.Is(err, exposite.ErrEmptyName) {
		t.Errorf("blank login err = %v", err)
	}
	if err := app.Login(ctx, " Marta "); err != nil {
		t.Fatal(err)
	}
	if got := app.Username(ctx); got != "Marta" {
		t.Errorf("Username = %q", got)
	}
	if _, err := app.NewTab(ctx); err != nil {
		t.Errorf("NewTab after login: %v", err)
	}
	if err := app.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := app.NewTab(ctx); !errors.Is(err, exposite.ErrNotLoggedIn) {
		t.Errorf("NewTab after logout err = %v", err)
	}
}

func TestWithGuard(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	app, err := exposite.OpenWithConfig(ctx, memoryConfig(), exposite.WithGuard(hostGuard("host user")))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close(ctx)

	if _, err := app.NewTab(ctx); err != nil {
		t.Errorf("host guard should allow tabs: %v", err)
	}
	if got := app.Username(ctx); got != "host user" {
		t.Errorf("Username = %q", got)
	}
}

type hostGuard string

func (g hostGuard) LoggedIn(context.Context) bool  { return g != "" }
func (g hostGuard) Username(context.Context) string { return string(g) }

func TestTeamAScenario(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))
	team := seedTeamA(t, ctx, tab)
	gid := team.group.ID

	sel, err := tab.StartSession(ctx, gid)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sel.Status.TotalCount != 3 {
		t.Fatalf("totalCount = %d", sel.Status.TotalCount)
	}

	res := score(t, ctx, tab, gid, team.members[1].ID, "10", "15")
	if res.Score != 25 || res.Status.CompletedCount != 1 || res.Status.RemainingCount != 2 {
		t.Errorf("after member #2: %+v", res)
	}
	if m, _ := tab.GetMember(ctx, team.members[1].ID); m.Score != 25 {
		t.Errorf("member #2 score = %d", m.Score)
	}

	score(t, ctx, tab, gid, team.members[0].ID, "7", "30")
	res = score(t, ctx, tab, gid, team.members[2].ID, "-4", "12abc")
	if res.Status.RemainingCount != 0 {
		t.Errorf("remaining = %d", res.Status.RemainingCount)
	}
	if m, _ := tab.GetMember(ctx, team.members[0].ID); m.Score != 27 {
		t.Errorf("member #1 score = %d, want 7 + clamped 20", m.Score)
	}
	if m, _ := tab.GetMember(ctx, team.members[2].ID); m.Score != 12 {
		t.Errorf("member #3 score = %d, want 0 + 12", m.Score)
	}

	next, err := tab.NextPresenter(ctx, gid)
	if err != nil || !next.Exhausted {
		t.Errorf("NextPresenter = %+v, %v; want exhausted", next, err)
	}

	// Reset leaves the session as it was.
	n, err := tab.ResetScores(ctx, gid)
	if err != nil || n != 3 {
		t.Fatalf("ResetScores = %d, %v", n, err)
	}
	for _, m := range tab.ListMembers(ctx, gid) {
		if m.Score != 0 {
			t.Errorf("%s score = %d after reset", m.FullName(), m.Score)
		}
	}
	st, _ := tab.SessionStatus(ctx, gid)
	if st.State != exposite.Exhausted || st.CompletedCount != 3 {
		t.Errorf("session after reset = %+v", st)
	}

	if err := tab.EndSession(ctx, gid); err != nil {
		t.Fatal(err)
	}
	if st, _ := tab.SessionStatus(ctx, gid); st.State != exposite.NoSession {
		t.Errorf("state after EndSession = %v", st.State)
	}
}

func TestTabsRunIndependentSessions(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.EphemeralBackend = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.SealKey = "0123456789abcdef0123456789abcdef"

	app := openApp(t, cfg)
	a := loggedInTab(t, app)
	b, err := app.NewTab(ctx)
	if err != nil {
		t.Fatal(err)
	}
	team := seedTeamA(t, ctx, a)
	gid := team.group.ID

	if _, err := a.StartSession(ctx, gid); err != nil {
		t.Fatal(err)
	}
	if _, err := b.StartSession(ctx, gid); err != nil {
		t.Fatalf("second tab should start its own session: %v", err)
	}
	score(t, ctx, a, gid, team.members[0].ID, "1", "1")

	if st, _ := a.SessionStatus(ctx, gid); st.CompletedCount != 1 {
		t.Errorf("tab a completed = %d", st.CompletedCount)
	}
	if st, _ := b.SessionStatus(ctx, gid); st.CompletedCount != 0 {
		t.Errorf("tab b completed = %d, want 0", st.CompletedCount)
	}

	if err := a.Close(ctx); err != nil {
		t.Fatal(err)
	}
	for _, k := range mr.Keys() {
		if strings.Contains(k, a.ID()) {
			t.Errorf("closed tab left key %s", k)
		}
	}
	if st, _ := b.SessionStatus(ctx, gid); st.State != exposite.Active {
		t.Errorf("tab b lost its session when tab a closed: %+v", st)
	}
}

func TestDeleteGroupEndsSession(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))
	team := seedTeamA(t, ctx, tab)
	gid := team.group.ID

	if _, err := tab.StartSession(ctx, gid); err != nil {
		t.Fatal(err)
	}
	if err := tab.DeleteGroup(ctx, gid); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.GetGroup(ctx, gid); !errors.Is(err, exposite.ErrNotFound) {
		t.Errorf("GetGroup err = %v", err)
	}
	if len(tab.ListMembers(ctx, gid)) != 0 || len(tab.ListRubricItems(ctx, gid)) != 0 {
		t.Error("cascade left records behind")
	}
	if st, _ := tab.SessionStatus(ctx, gid); st.State != exposite.NoSession {
		t.Errorf("session survived group delete: %+v", st)
	}
}

func TestDeleteMemberMidSession(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))
	team := seedTeamA(t, ctx, tab)
	gid := team.group.ID

	if _, err := tab.StartSession(ctx, gid); err != nil {
		t.Fatal(err)
	}
	score(t, ctx, tab, gid, team.members[0].ID, "1", "1")
	if err := tab.DeleteMember(ctx, team.members[0].ID, gid); err != nil {
		t.Fatal(err)
	}
	st, _ := tab.SessionStatus(ctx, gid)
	if st.CompletedCount != 0 || st.TotalCount != 3 {
		t.Errorf("status = %+v, want completed 0 and pinned total 3", st)
	}
}

func TestFormValidation(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))

	_, err := tab.CreateGroup(ctx, exposite.GroupForm{Name: " "})
	var fe exposite.FormErrors
	if !errors.As(err, &fe) || fe["name"] == "" {
		t.Errorf("blank group err = %v", err)
	}
	g, _ := tab.CreateGroup(ctx, exposite.GroupForm{Name: "<b>3B</b>"})
	if g.Name != "3B" {
		t.Errorf("group name = %q, want markup stripped", g.Name)
	}
	if _, err := tab.AddRubricItem(ctx, g.ID, exposite.RubricItemForm{Title: "x", MaxPoints: 0}); !errors.As(err, &fe) {
		t.Errorf("maxPoints 0 err = %v", err)
	}
	if _, err := tab.AddMember(ctx, 999, exposite.MemberForm{ListNumber: 1, FirstName: "a", PaternalSurname: "b"}); !errors.Is(err, exposite.ErrNotFound) {
		t.Errorf("member for missing group err = %v", err)
	}
}

func TestEditAndUpdate(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))
	team := seedTeamA(t, ctx, tab)
	gid := team.group.ID
	score(t, ctx, tab, gid, team.members[0].ID, "5", "5")

	m, err := tab.EditMember(ctx, team.members[0].ID, exposite.MemberForm{ListNumber: 9, FirstName: "Ana", PaternalSurname: "Ruiz", MaternalSurname: "Sol"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Score != 10 || m.ListNumber != 9 || m.FullName() != "Ana Ruiz Sol" {
		t.Errorf("edited = %+v", m)
	}

	if err := tab.UpdateRubricItem(ctx, team.items[0].ID, exposite.RubricItemForm{Title: "Ideas", Description: "Clear ideas", MaxPoints: 5}); err != nil {
		t.Fatal(err)
	}
	items := tab.ListRubricItems(ctx, gid)
	if items[0].Title != "Ideas" || items[0].MaxPoints != 5 || items[0].GroupID != gid {
		t.Errorf("updated item = %+v", items[0])
	}

	if err := tab.RenameGroup(ctx, gid, exposite.GroupForm{Name: "Team Alpha"}); err != nil {
		t.Fatal(err)
	}
	if g, err := tab.FindGroupByName(ctx, "team alpha"); err != nil || g.ID != gid {
		t.Errorf("FindGroupByName = %+v, %v", g, err)
	}
	if err := tab.DeleteRubricItem(ctx, team.items[1].ID, gid); err != nil {
		t.Fatal(err)
	}
	if g, _ := tab.GetGroup(ctx, gid); len(g.RubricItemIDs) != 1 {
		t.Errorf("rubricItemIds = %v", g.RubricItemIDs)
	}
}

func TestImportAndExport(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	tab := loggedInTab(t, openApp(t, memoryConfig()))
	g, _ := tab.CreateGroup(ctx, exposite.GroupForm{Name: "3B"})

	roster := "List Number,First Name,Paternal Surname,Maternal Surname\n2,Beto,Paz,\n1,Ana,Ruiz,Sol\n"
	added, err := tab.ImportRoster(ctx, g.ID, strings.NewReader(roster))
	if err != nil || len(added) != 2 {
		t.Fatalf("ImportRoster = %v, %v", added, err)
	}
	if _, err := tab.ImportRoster(ctx, g.ID, strings.NewReader("x,Bad,Row\n")); err == nil {
		t.Error("bad roster accepted")
	}
	if got := len(tab.ListMembers(ctx, g.ID)); got != 2 {
		t.Errorf("members after rejected import = %d, want 2", got)
	}

	var buf bytes.Buffer
	if err := tab.ExportCSV(ctx, &buf, g.ID, exposite.ByRoster); err != nil {
		t.Fatal(err)
	}
	want := "Group,List Number,Full Name,Score\n3B,1,Ana Ruiz Sol,0\n3B,2,Beto Paz,0\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
	if _, err := tab.ExportRows(ctx, 999, exposite.ByScore); !errors.Is(err, exposite.ErrNotFound) {
		t.Errorf("export missing group err = %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cfg := exposite.DefaultConfig()
	cfg.DataDir = t.TempDir()

	app, err := exposite.OpenWithConfig(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tab := loggedInTab(t, app)
	team := seedTeamA(t, ctx, tab)
	if err := app.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := app.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := app.NewTab(ctx); !errors.Is(err, exposite.ErrClosed) {
		t.Errorf("NewTab after Close err = %v", err)
	}

	again := openApp(t, cfg)
	if !again.LoggedIn(ctx) {
		t.Error("login did not survive reopen")
	}
	if err := again.Check(ctx); err != nil {
		t.Errorf("Check: %v", err)
	}
	tab2, err := again.NewTab(ctx)
	if err != nil {
		t.Fatal(err)
	}
	g, err := tab2.GetGroup(ctx, team.group.ID)
	if err != nil || len(g.MemberIDs) != 3 || len(g.RubricItemIDs) != 2 {
		t.Errorf("reopened group = %+v, %v", g, err)
	}
	if st, _ := tab2.SessionStatus(ctx, team.group.ID); st.State != exposite.NoSession {
		t.Errorf("a new tab should start without sessions: %+v", st)
	}
}

func TestOpenWithConfig_Invalid(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cfg := memoryConfig()
	cfg.DurableBackend = "floppy"
	if _, err := exposite.OpenWithConfig(ctx, cfg); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestResumeTab_AfterRestart(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	mr := miniredis.RunT(t)
	cfg := exposite.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.EphemeralBackend = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.SealKey = "0123456789abcdef0123456789abcdef"

	first, err := exposite.OpenWithConfig(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tab := loggedInTab(t, first)
	team := seedTeamA(t, ctx, tab)
	gid := team.group.ID
	if _, err := tab.StartSession(ctx, gid); err != nil {
		t.Fatal(err)
	}
	score(t, ctx, tab, gid, team.members[0].ID, "4", "4")
	id := tab.ID()
	if err := first.Close(ctx); err != nil {
		t.Fatal(err)
	}

	again := openApp(t, cfg)
	resumed, err := again.ResumeTab(ctx, id)
	if err != nil {
		t.Fatalf("ResumeTab: %v", err)
	}
	if resumed.ID() != id {
		t.Errorf("resumed ID = %q, want %q", resumed.ID(), id)
	}
	st, err := resumed.SessionStatus(ctx, gid)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != exposite.Active || st.TotalCount != 3 || st.CompletedCount != 1 || st.RemainingCount != 2 {
		t.Errorf("resumed status = %+v, want active 1 of 3", st)
	}
	next, err := resumed.NextPresenter(ctx, gid)
	if err != nil {
		t.Fatal(err)
	}
	if next.Member.ID == team.members[0].ID {
		t.Error("resumed session picked a member who already presented")
	}

	fresh, err := again.NewTab(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st, _ := fresh.SessionStatus(ctx, gid); st.State != exposite.NoSession {
		t.Errorf("a new tab saw the resumed tab's session: %+v", st)
	}
}

func TestResumeTab(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	app := openApp(t, memoryConfig())
	tab := loggedInTab(t, app)

	same, err := app.ResumeTab(ctx, tab.ID())
	if err != nil || same != tab {
		t.Errorf("ResumeTab of an open tab = %p, %v; want %p", same, err, tab)
	}
	if _, err := app.ResumeTab(ctx, "not-a-tab"); !errors.Is(err, exposite.ErrInvalidTabID) {
		t.Errorf("malformed id err = %v", err)
	}
	if err := app.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := app.ResumeTab(ctx, tab.ID()); !errors.Is(err, exposite.ErrNotLoggedIn) {
		t.Errorf("resume after logout err = %v", err)
	}
}
