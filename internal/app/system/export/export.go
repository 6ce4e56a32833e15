// internal/app/system/export/export.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dalemusser/exposite/internal/domain/models"
)

// Order of exported rows.
type Order int

const (
	ByRoster Order = iota // list number ascending
	ByScore               // score descending, ties by list number
)

// Row is what the export collaborator receives per member.
type Row struct {
	ListNumber int
	FullName   string
	Score      int
}

// Rows converts members into export rows in the requested order. Ties keep
// the input order, so callers passing a store listing get insertion order.
func Rows(members []models.Member, order Order) []Row {
	ms := append([]models.Member(nil), members...)
	switch order {
	case ByScore:
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].Score != ms[j].Score {
				return ms[i].Score > ms[j].Score
			}
			return ms[i].ListNumber < ms[j].ListNumber
		})
	default:
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].ListNumber < ms[j].ListNumber })
	}
	out := make([]Row, len(ms))
	for i, m := range ms {
		out[i] = Row{ListNumber: m.ListNumber, FullName: m.FullName(), Score: m.Score}
	}
	return out
}

// Header is the first record WriteCSV emits.
var Header = []string{"Group", "List Number", "Full Name", "Score"}

// WriteCSV writes a header and one record per row.
func WriteCSV(w io.Writer, groupName string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{groupName, strconv.Itoa(r.ListNumber), r.FullName, strconv.Itoa(r.Score)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r.ListNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
