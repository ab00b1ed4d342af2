package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"patient-management/internal/domain/entity"

	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Patients"

// RosterExportHeader is the column order of the exported spreadsheet.
var RosterExportHeader = []string{
	"ID", "First Name", "Last Name", "Email", "Phone", "Gender", "Date of Birth", "Age",
	"Blood Group", "Status", "Last Visit", "Allergies", "Current Medications",
}

var rosterColumnWidths = []float64{8, 16, 16, 28, 18, 10, 14, 6, 12, 14, 12, 24, 30}

// ExportRoster renders patients as an xlsx workbook with a frozen header row.
func ExportRoster(patients []entity.Patient, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(RosterExportHeader))
	for i, h := range RosterExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(rosterSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(RosterExportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(rosterSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range rosterColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(rosterSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i := range patients {
		p := &patients[i]
		row := []interface{}{
			p.ID.String(), p.FirstName, p.LastName, p.Email, p.Phone, p.Gender, p.DateOfBirth,
			p.Age(now, true), p.BloodGroup, p.Status, p.LastVisit,
			strings.Join(p.Allergies, ", "), strings.Join(p.CurrentMedications, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(rosterSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
