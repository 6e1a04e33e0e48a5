package services

import (
	"bytes"
	"coldcall-api/internal/models"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// ExportHeader is the fixed CSV column order.
var ExportHeader = []string{"Name", "Address", "Phone", "Category", "Rating", "Website", "Script"}

// ExportRows serializes rows as CSV. Every row carries every column; absent
// values are empty strings. No rows gives a header-only file.
func ExportRows(rows []models.ResultRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ExportHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(exportRecord(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportRecord(r models.ResultRow) []string {
	b := r.Business
	rating := ""
	if b.Rating > 0 {
		rating = strconv.FormatFloat(b.Rating, 'f', 1, 64)
	}
	return []string{
		safeCell(b.Name),
		safeCell(b.Address),
		safeCell(b.Phone),
		safeCell(b.Category),
		rating,
		safeCell(b.Website),
		safeCell(r.Script),
	}
}

// formulaPrefixes start a formula in common spreadsheet applications.
const formulaPrefixes = "=+-@\t\r"

// safeCell quotes provider text that a spreadsheet would evaluate.
func safeCell(v string) string {
	if v != "" && strings.IndexByte(formulaPrefixes, v[0]) >= 0 {
		return "'" + v
	}
	return v
}

// ExportFilename names a download after the moment it was produced.
func ExportFilename(now time.Time) string {
	return "business_contacts_" + now.Format("20060102_150405") + ".csv"
}
