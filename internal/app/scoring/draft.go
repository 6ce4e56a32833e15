package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/dalemusser/exposite/internal/domain/models"
)

// Entry is one rubric line of a draft.
type Entry struct {
	RubricItemID int64
	Title        string
	Description  string
	MaxPoints    int
	Awarded      models.Points
}

// Draft is the in-progress scoring of one presentation. It is a value:
// SetItemScore returns a new Draft and never mutates its argument.
type Draft struct {
	GroupID int64
	Entries []Entry
}

func (d Draft) clone() Draft {
	out := Draft{GroupID: d.GroupID, Entries: make([]Entry, len(d.Entries))}
	copy(out.Entries, d.Entries)
	return out
}

// IsComplete reports whether every entry is scored. An empty draft is never
// complete.
func (d Draft) IsComplete() bool {
	if len(d.Entries) == 0 {
		return false
	}
	for _, e := range d.Entries {
		if !e.Awarded.IsSet() {
			return false
		}
	}
	return true
}

// Total sums the awarded points, counting unset entries as 0.
func (d Draft) Total() int {
	var n int
	for _, e := range d.Entries {
		n += e.Awarded.Or(0)
	}
	return n
}

// MaxTotal sums the entries' max points.
func (d Draft) MaxTotal() int {
	var n int
	for _, e := range d.Entries {
		n += e.MaxPoints
	}
	return n
}

// Percent is Total over MaxTotal as a percentage rounded half up, or 0 when
// MaxTotal is 0. The ratio is taken before scaling, so float results match
// the browser indicator (29 of 200 shows 14).
func (d Draft) Percent() int {
	limit := d.MaxTotal()
	if limit <= 0 {
		return 0
	}
	return int(math.Floor(float64(d.Total())/float64(limit)*100 + 0.5))
}

// parsePoints reads raw form input. Only the empty string means unset.
// Anything else yields its leading integer, or 0 when there is none, clamped
// to [0, maxPoints].
func parsePoints(raw string, maxPoints int) models.Points {
	if raw == "" {
		return models.Unset()
	}
	n, ok := leadingInt(raw)
	if !ok {
		n = 0
	}
	return models.Scored(clamp(n, 0, maxPoints))
}

// leadingInt parses an optionally signed run of decimal digits after leading
// white space and ignores whatever follows. Values beyond int range saturate.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var (
		n      int
		digits int
	)
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := int(s[i] - '0')
		if n > (math.MaxInt-d)/10 {
			n = math.MaxInt
		} else {
			n = n*10 + d
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
