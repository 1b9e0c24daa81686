// Package spreadsheet extracts activity rows from uploaded workbook files.
// It understands modern .xlsx workbooks and legacy .xls ones, and maps the
// institutional export's column headers onto the normalizer's row shape.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/edusuite/institution-admin/internal/activity"
)

var (
	ErrEmptyWorkbook = errors.New("worksheet is empty")
	ErrNoWorksheet   = errors.New("no worksheet found")
	ErrNoHeaders     = errors.New("no recognized column headers in first row")
)

// MaxFileSize caps uploaded workbooks at 5MB, matching the upload form.
const MaxFileSize = 5 * 1024 * 1024

// Column identifiers for the fields the importer understands.
const (
	colDescription = "description"
	colPerson      = "assigned_person"
	colDays        = "scheduled_days"
	colStart       = "start_time"
	colEnd         = "end_time"
	colDates       = "dates"
	colLocation    = "location"
)

// headerAliases maps normalized header text to column identifiers. The
// Portuguese names are the institutional export's own headers; the English
// ones cover hand-built spreadsheets.
var headerAliases = map[string]string{
	"descrição":                           colDescription,
	"descricao":                           colDescription,
	"description":                         colDescription,
	"atividade":                           colDescription,
	"nome do pessoal atribuído":           colPerson,
	"nome do pessoal atribuido":           colPerson,
	"responsável":                         colPerson,
	"responsavel":                         colPerson,
	"assigned person":                     colPerson,
	"instructor":                          colPerson,
	"dias agendados":                      colDays,
	"scheduled days":                      colDays,
	"hora de início agendada":             colStart,
	"hora de inicio agendada":             colStart,
	"start time":                          colStart,
	"fim agendado":                        colEnd,
	"end time":                            colEnd,
	"datas da atividade (individual)":     colDates,
	"datas da atividade":                  colDates,
	"datas":                               colDates,
	"dates":                               colDates,
	"descrição da localização atribuída":  colLocation,
	"descricao da localizacao atribuida":  colLocation,
	"localização":                         colLocation,
	"localizacao":                         colLocation,
	"location":                            colLocation,
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// ReadRows loads the first worksheet of an uploaded workbook and returns
// one RawRow per data row. The first row must carry recognizable headers.
func ReadRows(data []byte, filename string) ([]activity.RawRow, error) {
	rows, err := loadCells(data, filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	columns := mapHeaders(rows[0])
	if len(columns) == 0 {
		return nil, ErrNoHeaders
	}

	out := make([]activity.RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if rowIsBlank(cells) {
			continue
		}
		out = append(out, buildRow(columns, cells))
	}
	return out, nil
}

// loadCells reads every cell of the first sheet as text. Legacy .xls files
// go through extrame/xls; everything else is treated as an OOXML workbook.
func loadCells(data []byte, filename string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, ErrNoWorksheet
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, ErrEmptyWorkbook
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, ErrNoWorksheet
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		return rows, nil
	}
}

// mapHeaders resolves the header row to column-index assignments.
func mapHeaders(headers []string) map[string]int {
	columns := make(map[string]int)
	for idx, header := range headers {
		if field, ok := headerAliases[normalizeHeader(header)]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = idx
			}
		}
	}
	return columns
}

func rowIsBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(columns map[string]int, cells []string, field string) activity.Cell {
	idx, ok := columns[field]
	if !ok || idx >= len(cells) {
		return activity.AbsentCell()
	}
	return activity.StringCell(cells[idx])
}

func buildRow(columns map[string]int, cells []string) activity.RawRow {
	return activity.RawRow{
		Description:    cellAt(columns, cells, colDescription),
		AssignedPerson: cellAt(columns, cells, colPerson),
		ScheduledDays:  cellAt(columns, cells, colDays),
		StartTime:      cellAt(columns, cells, colStart),
		EndTime:        cellAt(columns, cells, colEnd),
		Dates:          cellAt(columns, cells, colDates),
		Location:       cellAt(columns, cells, colLocation),
	}
}
