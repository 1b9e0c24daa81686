package activity

import (
	"time"

	"github.com/google/uuid"
)

// CellKind discriminates the value types a spreadsheet cell can carry.
type CellKind int

const (
	CellAbsent CellKind = iota
	CellString
	CellNumber
	CellTime
)

// Cell is a tagged union over the value types spreadsheet libraries hand
// back: missing, text, a numeric Excel serial, or an already-parsed time.
type Cell struct {
	Kind   CellKind
	String string
	Number float64
	Time   time.Time
}

// StringCell wraps a text value. Empty text is still a string cell; use
// AbsentCell for cells that were not present at all.
func StringCell(s string) Cell { return Cell{Kind: CellString, String: s} }

// NumberCell wraps a numeric value (Excel serial date or fraction-of-day time).
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Number: n} }

// TimeCell wraps an already-parsed date value.
func TimeCell(t time.Time) Cell { return Cell{Kind: CellTime, Time: t} }

// AbsentCell marks a column that was missing from the row.
func AbsentCell() Cell { return Cell{Kind: CellAbsent} }

// RawRow is one spreadsheet row with its recognized columns. Any cell may be
// absent; the normalizer decides what that means per field.
type RawRow struct {
	Description    Cell
	AssignedPerson Cell
	ScheduledDays  Cell
	StartTime      Cell
	EndTime        Cell
	Dates          Cell
	Location       Cell
}

// Activity is the canonical scheduled-activity record. Time fields hold
// "HH:MM:SS" or are empty when the source supplied nothing; Date holds
// "YYYY-MM-DD" or is empty when no date was supplied.
type Activity struct {
	ID             uuid.UUID `json:"id,omitempty"`
	Description    string    `json:"description"`
	AssignedPerson string    `json:"assignedPersonName"`
	ScheduledDays  string    `json:"scheduledDays"`
	StartTime      string    `json:"scheduledStartTime"`
	EndTime        string    `json:"scheduledEndTime"`
	Date           string    `json:"individualActivityDate"`
	Location       string    `json:"assignedLocationDescription"`
	Confirmed      bool      `json:"confirmed"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// NaturalKey returns the triple that identifies an activity for
// deduplication. An empty date is a key value of its own: it only collides
// with other dateless records for the same description and person.
func (a Activity) NaturalKey() (description, person, date string) {
	return a.Description, a.AssignedPerson, a.Date
}

// ImportReport summarizes one batch import. Messages carries one
// human-readable line per row that was not cleanly inserted, in row order.
type ImportReport struct {
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Invalid    int      `json:"invalid"`
	Errors     int      `json:"errors"`
	Total      int      `json:"total"`
	Messages   []string `json:"messages"`
}
