package activity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Date layouts accepted from spreadsheet cells, tried in order. Day-first
// layouts come first because that is how the source spreadsheets are
// exported.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2006-01-02",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
	"02.01.2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Excel serial dates below this are fraction-of-day times or artifacts of
// the 1900 epoch; treat them as not-a-date.
const minDateSerial = 61

// ConvertTime canonicalizes a time cell to "HH:MM:SS".
//
// Strings that already contain ":" pass through, with ":00" seconds
// appended when only hours and minutes are present. Numeric values are
// Excel fraction-of-day serials: hours = floor(v*24), minutes =
// round((v*24*60) mod 60). Anything unparseable reports ok=false; the
// function never fails hard.
func ConvertTime(c Cell) (string, bool) {
	switch c.Kind {
	case CellAbsent:
		return "", false
	case CellTime:
		return c.Time.Format("15:04:05"), true
	case CellString:
		s := strings.TrimSpace(c.String)
		if s == "" {
			return "", false
		}
		if strings.Contains(s, ":") {
			if strings.Count(s, ":") == 1 {
				return s + ":00", true
			}
			return s, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", false
		}
		return serialToTime(n), true
	case CellNumber:
		return serialToTime(c.Number), true
	}
	return "", false
}

func serialToTime(v float64) string {
	hours := int(math.Floor(v * 24))
	minutes := int(math.Round(math.Mod(v*24*60, 60)))
	return fmt.Sprintf("%02d:%02d:00", hours, minutes)
}

// ConvertDate canonicalizes a date cell to "YYYY-MM-DD". It accepts
// day-first strings, Excel serial-date numbers, and parsed time values.
// Unparseable input reports ok=false so the caller can drop the token.
func ConvertDate(c Cell) (string, bool) {
	switch c.Kind {
	case CellAbsent:
		return "", false
	case CellTime:
		return c.Time.Format("2006-01-02"), true
	case CellNumber:
		return serialToDate(c.Number)
	case CellString:
		s := strings.TrimSpace(c.String)
		if s == "" {
			return "", false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToDate(serial)
		}
		return "", false
	}
	return "", false
}

func serialToDate(serial float64) (string, bool) {
	if serial < minDateSerial {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// cellText flattens a cell to trimmed text for free-text fields. Numbers
// keep their shortest decimal form, matching how spreadsheets display them.
func cellText(c Cell) string {
	switch c.Kind {
	case CellString:
		return strings.TrimSpace(c.String)
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellTime:
		return c.Time.Format("2006-01-02")
	}
	return ""
}

// Normalize converts one raw spreadsheet row into canonical activities, one
// per scheduled date. The dates cell is a semicolon-separated token list;
// tokens that fail to parse are dropped. A row with no usable dates still
// yields exactly one activity with an empty date. Field validation is the
// import pipeline's job, not done here.
func Normalize(row RawRow) []Activity {
	base := Activity{
		Description:    cellText(row.Description),
		AssignedPerson: cellText(row.AssignedPerson),
		ScheduledDays:  cellText(row.ScheduledDays),
		Location:       cellText(row.Location),
	}
	if t, ok := ConvertTime(row.StartTime); ok {
		base.StartTime = t
	}
	if t, ok := ConvertTime(row.EndTime); ok {
		base.EndTime = t
	}

	var dates []string
	if row.Dates.Kind == CellNumber || row.Dates.Kind == CellTime {
		if d, ok := ConvertDate(row.Dates); ok {
			dates = append(dates, d)
		}
	} else {
		for _, token := range strings.Split(cellText(row.Dates), ";") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if d, ok := ConvertDate(StringCell(token)); ok {
				dates = append(dates, d)
			}
		}
	}

	if len(dates) == 0 {
		return []Activity{base}
	}

	out := make([]Activity, 0, len(dates))
	for _, d := range dates {
		a := base
		a.Date = d
		out = append(out, a)
	}
	return out
}
