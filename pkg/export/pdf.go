package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/samber/lo"
)

const (
	pageWidth   = 277.0
	dayColWidth = 25.0
	headerH     = 10.0
	lineH       = 4.0
)

// PDFExporter draws a day by block grid, one page per grade.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays rows out on landscape A4 pages. Columns lists the teaching blocks in order.
func (e *PDFExporter) Render(title string, columns []Column, rows []ScheduleRow) ([]byte, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one teaching block")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	byGrade := lo.GroupBy(sortRows(rows), func(r ScheduleRow) string { return r.Grade })
	grades := lo.Keys(byGrade)
	sort.Strings(grades)
	if len(grades) == 0 {
		grades = []string{""}
	}

	colW := (pageWidth - dayColWidth) / float64(len(columns))
	for _, grade := range grades {
		pdf.AddPage()
		heading := title
		if grade != "" {
			heading = fmt.Sprintf("%s - Grade %s", title, grade)
		}
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(heading), "", 1, "C", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(dayColWidth, headerH, "", "1", 0, "C", true, 0, "")
		for _, col := range columns {
			label := col.Label
			if col.Start != "" {
				label = fmt.Sprintf("%s %s-%s", label, col.Start, col.End)
			}
			pdf.CellFormat(colW, headerH, tr(strings.TrimSpace(label)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		cells := lo.GroupBy(byGrade[grade], func(r ScheduleRow) [2]int { return [2]int{r.Day, r.Block} })
		pdf.SetFont("Arial", "", 7)
		for day := 1; day <= 5; day++ {
			height := rowHeight(cells, day, columns)
			x, y := pdf.GetXY()
			pdf.SetFont("Arial", "B", 8)
			pdf.CellFormat(dayColWidth, height, DayName(day), "1", 0, "C", false, 0, "")
			pdf.SetFont("Arial", "", 7)
			for i, col := range columns {
				cx := x + dayColWidth + float64(i)*colW
				pdf.Rect(cx, y, colW, height, "D")
				pdf.SetXY(cx, y+0.5)
				pdf.MultiCell(colW, lineH, tr(cellText(cells[[2]int{day, col.Block}])), "", "C", false)
			}
			pdf.SetXY(x, y+height)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func rowHeight(cells map[[2]int][]ScheduleRow, day int, columns []Column) float64 {
	lines := 2
	for _, col := range columns {
		if n := len(cells[[2]int{day, col.Block}]) * 3; n > lines {
			lines = n
		}
	}
	return float64(lines)*lineH + 1
}

func cellText(rows []ScheduleRow) string {
	parts := lo.Map(rows, func(r ScheduleRow, _ int) string {
		subject := lo.Ternary(r.Subject != "", r.Subject, r.ClassID)
		teacher := lo.Ternary(r.Teacher != "", r.Teacher, r.TeacherID)
		room := lo.Ternary(r.Room != "", r.Room, r.RoomID)
		mark := lo.Ternary(r.Violation, "*", "")
		return fmt.Sprintf("%s%s\n%s\n%s", subject, mark, teacher, room)
	})
	return strings.Join(parts, "\n")
}
