// internal/app/system/export/roster.go
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dalemusser/exposite/internal/app/system/formval"
	"github.com/dalemusser/exposite/internal/domain/models"
)

// Roster import limits.
const (
	MaxUploadSize = 1 << 20 // 1 MB
	MaxRows       = 500
)

var (
	ErrTooManyRows = fmt.Errorf("roster has more than %d rows", MaxRows)
	ErrTooLarge    = fmt.Errorf("roster is larger than %d bytes", MaxUploadSize)
)

// RowError describes one rejected roster line.
type RowError struct {
	Line   int
	Reason string
}

// RosterError lists every rejected line. Nothing is imported when it is
// returned.
type RosterError struct {
	Rows []RowError
}

func (e *RosterError) Error() string {
	var b strings.Builder
	b.WriteString("roster rejected:")
	for i, r := range e.Rows {
		if i == 5 {
			fmt.Fprintf(&b, " (and %d more)", len(e.Rows)-5)
			break
		}
		fmt.Fprintf(&b, " line %d: %s;", r.Line, r.Reason)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// ReadRoster reads "List Number, First Name, Paternal Surname, Maternal
// Surname" records, skipping a header line if present and blank lines. Every
// row is cleaned and validated before anything is returned. Input over
// MaxUploadSize is rejected whole with ErrTooLarge.
func ReadRoster(r io.Reader) ([]models.MemberDetails, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		out  []models.MemberDetails
		errs []RowError
	)
	for first := true; ; first = false {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		if first && isHeader(rec) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if blank(rec) {
			continue
		}
		if len(out)+len(errs) >= MaxRows {
			return nil, ErrTooManyRows
		}

		n, err := strconv.Atoi(strings.TrimSpace(field(rec, 0)))
		if err != nil {
			errs = append(errs, RowError{Line: line, Reason: "list number is not a whole number"})
			continue
		}
		d, err := formval.Member(formval.MemberForm{
			ListNumber:      n,
			FirstName:       field(rec, 1),
			PaternalSurname: field(rec, 2),
			MaternalSurname: field(rec, 3),
		})
		if err != nil {
			errs = append(errs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		out = append(out, d)
	}
	if len(errs) > 0 {
		return nil, &RosterError{Rows: errs}
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeader(rec []string) bool {
	first := strings.ToLower(strings.TrimSpace(field(rec, 0)))
	switch first {
	case "list number", "list", "number", "no", "no.", "#":
		return true
	}
	return false
}
