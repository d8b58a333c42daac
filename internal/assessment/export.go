package assessment

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the grid with a student column, one column per skill and
// a total column. Empty cells stay blank.
func WriteCSV(w io.Writer, g Grid) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(g.Skills)+2)
	header = append(header, "student")
	for _, s := range g.Skills {
		header = append(header, s.Name)
	}
	header = append(header, "total")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range g.Rows {
		if err := cw.Write(cells(g, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cells(g Grid, r Row) []string {
	rec := make([]string, 0, len(g.Skills)+2)
	rec = append(rec, r.Name)
	for _, s := range g.Skills {
		if v, ok := r.Scores[s.ID]; ok {
			rec = append(rec, formatScore(v))
		} else {
			rec = append(rec, "")
		}
	}
	return append(rec, formatScore(r.Total))
}

// WritePDF renders the grid as a landscape table.
func WritePDF(w io.Writer, title string, g Grid) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	nameW := 60.0
	colW := (pageW - left - right - nameW) / float64(len(g.Skills)+1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(nameW, 8, "Student", "1", 0, "L", true, 0, "")
	for _, s := range g.Skills {
		pdf.CellFormat(colW, 8, s.Name+" /"+formatScore(s.MaxScore), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(colW, 8, "Total /"+formatScore(g.MaxTotal()), "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range g.Rows {
		rec := cells(g, r)
		pdf.CellFormat(nameW, 7, rec[0], "1", 0, "L", false, 0, "")
		for _, v := range rec[1 : len(rec)-1] {
			pdf.CellFormat(colW, 7, v, "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(colW, 7, rec[len(rec)-1], "1", 1, "C", false, 0, "")
	}
	return pdf.Output(w)
}
