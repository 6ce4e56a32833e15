// internal/domain/models/points.go
package models

import "strconv"

// Points is the score awarded against one rubric item in a draft.
// The zero value is Unset, which is distinct from Scored(0).
type Points struct {
	value int
	set   bool
}

// Unset returns a Points holding no score.
func Unset() Points { return Points{} }

// Scored returns a Points holding n.
func Scored(n int) Points { return Points{value: n, set: true} }

// IsSet reports whether a score was entered.
func (p Points) IsSet() bool { return p.set }

// Value returns the score and whether one was entered.
func (p Points) Value() (int, bool) { return p.value, p.set }

// Or returns the score, or def when unset.
func (p Points) Or(def int) int {
	if !p.set {
		return def
	}
	return p.value
}

// String renders the score the way an input box shows it: empty when unset.
func (p Points) String() string {
	if !p.set {
		return ""
	}
	return strconv.Itoa(p.value)
}
