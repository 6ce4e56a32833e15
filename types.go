package exposite

import (
	"errors"

	"github.com/dalemusser/exposite/internal/app/presentation"
	"github.com/dalemusser/exposite/internal/app/scoring"
	classroomstore "github.com/dalemusser/exposite/internal/app/store/classroom"
	"github.com/dalemusser/exposite/internal/app/system/auth"
	"github.com/dalemusser/exposite/internal/app/system/export"
	"github.com/dalemusser/exposite/internal/app/system/formval"
	"github.com/dalemusser/exposite/internal/domain/models"
)

// Records.
type (
	Group      = models.Group
	Member     = models.Member
	RubricItem = models.RubricItem
	Points     = models.Points
)

// Dialog input.
type (
	GroupForm      = formval.GroupForm
	MemberForm     = formval.MemberForm
	RubricItemForm = formval.RubricItemForm
	FormErrors     = formval.Errors
)

// Sessions and scoring.
type (
	Status     = presentation.Status
	State      = presentation.State
	Selection  = presentation.Selection
	Draft      = scoring.Draft
	DraftEntry = scoring.Entry
	Result     = scoring.Result
)

const (
	NoSession = presentation.NoSession
	Active    = presentation.Active
	Exhausted = presentation.Exhausted
)

// Export.
type (
	Row         = export.Row
	Order       = export.Order
	RosterError = export.RosterError
)

const (
	ByRoster = export.ByRoster
	ByScore  = export.ByScore
)

// Guard decides who is logged in.
type Guard = auth.Guard

var (
	ErrNotLoggedIn  = errors.New("log in before opening a tab")
	ErrClosed       = errors.New("exposite is closed")
	ErrInvalidTabID = errors.New("invalid tab id")

	ErrNotFound         = classroomstore.ErrNotFound
	ErrUnavailable      = classroomstore.ErrUnavailable
	ErrNegativeScore    = classroomstore.ErrNegativeScore
	ErrInvalidMaxPoints = classroomstore.ErrInvalidMaxPoints
	ErrEmptyName        = auth.ErrEmptyName

	ErrNoMembers     = presentation.ErrNoMembers
	ErrSessionActive = presentation.ErrSessionActive
	ErrNoSession     = presentation.ErrNoSession

	ErrUnknownItem = scoring.ErrUnknownItem
	ErrEmptyRubric = scoring.ErrEmptyRubric
	ErrIncomplete  = scoring.ErrIncomplete
	ErrWrongGroup  = scoring.ErrWrongGroup

	ErrTooManyRows = export.ErrTooManyRows
	ErrTooLarge    = export.ErrTooLarge
)
