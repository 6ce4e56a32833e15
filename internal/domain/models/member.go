// internal/domain/models/member.go
package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Member is a student on a group's roster.
//
// ListNumber is the roster position the instructor assigns. It is not unique and
// is never used as a key. Score holds the total from the member's most
// recent scored presentation (0 until then or after a reset).
type Member struct {
	ID              int64  `json:"id"`
	GroupID         int64  `json:"groupId"`
	ListNumber      int    `json:"listNumber"`
	FirstName       string `json:"firstName"`
	PaternalSurname string `json:"paternalSurname"`
	MaternalSurname string `json:"maternalSurname"`
	Score           int    `json:"score"`
}

// MemberDetails are the fields an edit dialog may change. Scores change only
// through scoring.
type MemberDetails struct {
	ListNumber      int
	FirstName       string
	PaternalSurname string
	MaternalSurname string
}

// FullName joins the name parts with single spaces, skipping empty parts.
func (m Member) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.FirstName, m.PaternalSurname, m.MaternalSurname} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Initials returns the upper-cased first letters of the first name and
// paternal surname ("?" when both are empty).
func (m Member) Initials() string {
	var b strings.Builder
	for _, p := range []string{m.FirstName, m.PaternalSurname} {
		p = strings.TrimSpace(p)
		if r, _ := utf8.DecodeRuneInString(p); r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// Apply returns a copy of m with the editable fields replaced by d.
func (m Member) Apply(d MemberDetails) Member {
	m.ListNumber = d.ListNumber
	m.FirstName = d.FirstName
	m.PaternalSurname = d.PaternalSurname
	m.MaternalSurname = d.MaternalSurname
	return m
}
