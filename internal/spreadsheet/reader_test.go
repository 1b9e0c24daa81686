package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/edusuite/institution-admin/internal/activity"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, cells := range rows {
		for c, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadRowsMapsPortugueseHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Descrição", "Nome do pessoal atribuído", "Dias agendados", "Hora de início agendada", "Fim Agendado", "Datas da atividade (Individual)", "Descrição da localização atribuída"},
		{"Reunião de equipe", "João Silva", "1", "12:00", "13:00", "01/01/2023;02/01/2023", "Sala 101"},
	})

	rows, err := ReadRows(data, "planilha.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, activity.StringCell("Reunião de equipe"), row.Description)
	assert.Equal(t, activity.StringCell("João Silva"), row.AssignedPerson)
	assert.Equal(t, activity.StringCell("01/01/2023;02/01/2023"), row.Dates)
	assert.Equal(t, activity.StringCell("Sala 101"), row.Location)

	acts := activity.Normalize(row)
	require.Len(t, acts, 2)
	assert.Equal(t, "2023-01-01", acts[0].Date)
	assert.Equal(t, "2023-01-02", acts[1].Date)
	assert.Equal(t, "12:00:00", acts[0].StartTime)
	assert.Equal(t, "13:00:00", acts[0].EndTime)
}

func TestReadRowsSkipsBlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Descrição", "Nome do pessoal atribuído"},
		{"Math", "Alice"},
		{"", ""},
		{"Yoga", "Bruna"},
	})

	rows, err := ReadRows(data, "agenda.xlsx")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadRowsShortRowYieldsAbsentCells(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Descrição", "Nome do pessoal atribuído", "Datas da atividade (Individual)"},
		{"Math", "Alice"},
	})

	rows, err := ReadRows(data, "agenda.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, activity.CellAbsent, rows[0].Dates.Kind)
}

func TestReadRowsRejectsUnknownHeaders(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"foo", "bar"},
		{"1", "2"},
	})

	_, err := ReadRows(data, "agenda.xlsx")
	assert.ErrorIs(t, err, ErrNoHeaders)
}

func TestReadRowsRejectsGarbage(t *testing.T) {
	_, err := ReadRows([]byte("this is not a workbook"), "agenda.xlsx")
	assert.Error(t, err)
}

func TestReadRowsEnglishAliases(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Description", "Instructor", "Dates", "Start Time", "End Time", "Location"},
		{"Chemistry", "Dr. Reed", "15/06/2023", "08:30", "10:00", "Lab 2"},
	})

	rows, err := ReadRows(data, "schedule.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	acts := activity.Normalize(rows[0])
	require.Len(t, acts, 1)
	assert.Equal(t, "2023-06-15", acts[0].Date)
	assert.Equal(t, "08:30:00", acts[0].StartTime)
	assert.Equal(t, "Lab 2", acts[0].Location)
}
