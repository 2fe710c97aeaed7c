package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"skymatch/internal/matcher"
	"skymatch/internal/models"
)

// Layout gives the zero-based columns holding each field. Row 0 is a header.
type Layout struct {
	IDColumn   int
	NameColumn int
	XColumn    int
	YColumn    int
}

func (l Layout) width() int {
	return max(l.IDColumn, l.NameColumn, l.XColumn, l.YColumn) + 1
}

func parseCoord(val string) (float64, error) {
	// Replace comma with dot for locales using a decimal comma
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", val)
	}
	return v, nil
}

// cellAt tolerates rows shortened by trailing empty cells.
func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

// OpenReader opens a workbook from an upload or other stream.
func OpenReader(r io.Reader) (*excelize.File, error) {
	return excelize.OpenReader(r)
}

// ReadSheet reads point records with native (x, y) from sheetName. Rows with
// missing or unparsable coordinates are skipped and counted. A blank ID
// falls back to "row-N" with N the 1-based spreadsheet row.
func ReadSheet(f *excelize.File, sheetName string, layout Layout) ([]models.PointRecord, int, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	var records []models.PointRecord
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			continue // Skip header
		}
		x, err1 := parseCoord(cellAt(row, layout.XColumn))
		y, err2 := parseCoord(cellAt(row, layout.YColumn))
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}

		id := strings.TrimSpace(cellAt(row, layout.IDColumn))
		if id == "" {
			id = fmt.Sprintf("row-%d", i+1)
		}
		records = append(records, models.PointRecord{
			ID:       id,
			Name:     strings.TrimSpace(cellAt(row, layout.NameColumn)),
			X:        x,
			Y:        y,
			RowIndex: i + 1,
		})
	}
	return records, skipped, nil
}

// ReadReferenceSheet reads a catalogue sheet whose x and y columns are RA
// and Dec in degrees.
func ReadReferenceSheet(f *excelize.File, sheetName string, layout Layout) ([]models.PointRecord, int, error) {
	records, skipped, err := ReadSheet(f, sheetName, layout)
	if err != nil {
		return nil, 0, err
	}
	for i := range records {
		records[i].Sky = models.Coordinate{Lon: records[i].X, Lat: records[i].Y}
	}
	return records, skipped, nil
}

// WriteResult writes the match rows to sheetName and a "Summary" sheet with
// the separation statistics, then saves the workbook to path.
func WriteResult(path string, data []models.ResultRow, sheetName string, summary matcher.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headers := []interface{}{
		"Observed ID", "Observed Name", "Observed X", "Observed Y", "Observed RA", "Observed Dec",
		"Reference ID", "Reference Name", "Reference RA", "Reference Dec",
		"Separation (arcsec)",
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, r := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.ObservedID, r.ObservedName, r.ObservedX, r.ObservedY, r.ObservedRA, r.ObservedDec,
			r.ReferenceID, r.ReferenceName, r.ReferenceRA, r.ReferenceDec,
			r.Distance,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if err := writeSummary(f, summary); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	// Delete default sheet if exists
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	return f.SaveAs(path)
}

func writeSummary(f *excelize.File, s matcher.Summary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Matches", s.Count},
		{"Mean separation (arcsec)", s.Mean},
		{"RMS separation (arcsec)", s.RMS},
		{"Max separation (arcsec)", s.Max},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTemplate writes an input workbook with the observed and reference
// sheets laid out as layout expects. records may be empty.
func WriteTemplate(w io.Writer, observedSheet, referenceSheet string, layout Layout, observed, reference []models.PointRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writePoints(f, observedSheet, layout, "X", "Y", observed); err != nil {
		return err
	}
	if err := writePoints(f, referenceSheet, layout, "RA", "Dec", reference); err != nil {
		return err
	}
	if observedSheet != "Sheet1" && referenceSheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	_, err := f.WriteTo(w)
	return err
}

func writePoints(f *excelize.File, sheet string, layout Layout, xName, yName string, records []models.PointRecord) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := make([]interface{}, layout.width())
	header[layout.IDColumn] = "ID"
	header[layout.NameColumn] = "Name"
	header[layout.XColumn] = xName
	header[layout.YColumn] = yName
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		row := make([]interface{}, layout.width())
		row[layout.IDColumn] = r.ID
		row[layout.NameColumn] = r.Name
		row[layout.XColumn] = r.X
		row[layout.YColumn] = r.Y
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
