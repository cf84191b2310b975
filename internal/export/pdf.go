package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"ResumeSection-backend/internal/reports"
)

const (
	notesPreview = 30
	rowHeight    = 7.0
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{59, 130, 246}
	stripeFill = rgb{249, 250, 251}
	totalFill  = rgb{243, 244, 246}
	textColor  = rgb{55, 65, 81}
)

// PDFRenderer は横向き A4 の一覧表、または1件分の詳細を書き出す。
type PDFRenderer struct {
	org string
	log zerolog.Logger
}

// NewPDFRenderer の org は各ページの見出しに出す団体名。
func NewPDFRenderer(org string, log zerolog.Logger) *PDFRenderer {
	return &PDFRenderer{org: org, log: log.With().Str("component", "pdf").Logger()}
}

func (*PDFRenderer) Format() string      { return "pdf" }
func (*PDFRenderer) ContentType() string { return "application/pdf" }
func (*PDFRenderer) Extension() string   { return "pdf" }

// Render は PDF を組み立て、ValidatePDF を通ったものだけを w に書く。
func (p *PDFRenderer) Render(w io.Writer, doc reports.Document) error {
	orientation := "L"
	if doc.Single {
		orientation = "P"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	tr := cp1252()

	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ResumeSection", false)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		setText(pdf, textColor)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Généré le %s - page %d/{nb}", doc.GeneratedAt.Format("02/01/2006 15:04"), pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	p.header(pdf, tr, doc)
	if doc.Single && len(doc.Reports) == 1 {
		p.single(pdf, tr, doc, doc.Reports[0])
	} else {
		if doc.Options.IncludeDetails {
			p.table(pdf, tr, doc)
		}
		if doc.Options.IncludeStats {
			p.stats(pdf, tr, doc)
		}
	}

	if pdf.Err() {
		return fmt.Errorf("build pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	chk, err := ValidatePDF(buf.Bytes())
	if err != nil {
		return err
	}
	for _, warn := range chk.Warnings {
		p.log.Warn().Str("title", doc.Title).Msg(warn)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (p *PDFRenderer) header(pdf *fpdf.Fpdf, tr func(string) string, doc reports.Document) {
	setText(pdf, textColor)
	if p.org != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(p.org), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if !doc.Range.IsZero() {
		pdf.CellFormat(0, 6, tr("Période : "+periodLabel(doc.Range)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
}

var tableCols = []struct {
	title string
	width float64
	align string
}{
	{"Date", 22, "L"},
	{"Section", 32, "L"},
	{"Prédicateur", 44, "L"},
	{"Fidèles", 18, "R"},
	{"Hommes", 18, "R"},
	{"Femmes", 18, "R"},
	{"Enfants", 18, "R"},
	{"Jeunes", 18, "R"},
	{"Offrande", 34, "R"},
	{"Notes", 51, "L"},
}

func (p *PDFRenderer) table(pdf *fpdf.Fpdf, tr func(string) string, doc reports.Document) {
	drawHead := func() {
		pdf.SetFont("Helvetica", "B", 9)
		setFill(pdf, headerFill)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range tableCols {
			pdf.CellFormat(c.width, rowHeight, tr(c.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		setText(pdf, textColor)
		pdf.SetFont("Helvetica", "", 8)
	}
	drawHead()

	if len(doc.Reports) == 0 {
		pdf.CellFormat(0, rowHeight, tr("Aucun rapport pour cette période."), "1", 1, "C", false, 0, "")
		return
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, r := range doc.Reports {
		if pdf.GetY()+rowHeight > pageH-bottom-5 {
			pdf.AddPage()
			drawHead()
		}
		fill := i%2 == 0
		setFill(pdf, stripeFill)
		notes := "-"
		if doc.Options.IncludeNotes && r.Notes != nil {
			notes = truncate(*r.Notes, notesPreview)
		}
		section := r.SectionName
		if section == "" {
			section = "#" + strconv.FormatInt(r.SectionID, 10)
		}
		cells := []string{
			r.Date.Format("02/01/2006"),
			truncate(section, 18),
			truncate(r.Preacher, 26),
			FormatCount(int64(r.TotalAttendees)),
			FormatCount(int64(r.Men)),
			FormatCount(int64(r.Women)),
			FormatCount(int64(r.Children)),
			FormatCount(int64(r.Youth)),
			FormatCurrency(r.Offering, r.Currency),
			notes,
		}
		for j, c := range tableCols {
			pdf.CellFormat(c.width, rowHeight, tr(cells[j]), "1", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (p *PDFRenderer) stats(pdf *fpdf.Fpdf, tr func(string) string, doc reports.Document) {
	setText(pdf, textColor)
	if len(doc.Sections) > 1 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, tr("Par section"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, st := range doc.Sections {
			name := st.SectionName
			if name == "" {
				name = "#" + strconv.FormatInt(st.SectionID, 10)
			}
			line := fmt.Sprintf("%s : %d rapports | Offrande : %s | Fidèles : %s",
				name, st.Count, FormatCurrency(st.TotalOffering, doc.Currency), FormatCount(st.TotalAttendees))
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 10)
	setFill(pdf, totalFill)
	line := fmt.Sprintf("Total : %d rapports | Offrande : %s | Fidèles : %s",
		doc.Totals.Count, FormatCurrency(doc.Totals.TotalOffering, doc.Currency), FormatCount(doc.Totals.TotalAttendees))
	pdf.CellFormat(0, 9, tr(line), "", 1, "L", true, 0, "")
}

func (p *PDFRenderer) single(pdf *fpdf.Fpdf, tr func(string) string, doc reports.Document, r reports.ActivityReport) {
	section := r.SectionName
	if section == "" {
		section = "#" + strconv.FormatInt(r.SectionID, 10)
	}
	rows := [][2]string{
		{"Date", r.Date.Format("02/01/2006")},
		{"Section", section},
		{"Prédicateur", r.Preacher},
		{"Total des fidèles", FormatCount(int64(r.TotalAttendees))},
		{"Hommes", FormatCount(int64(r.Men))},
		{"Femmes", FormatCount(int64(r.Women))},
		{"Enfants", FormatCount(int64(r.Children))},
		{"Jeunes", FormatCount(int64(r.Youth))},
		{"Offrande", FormatCurrency(r.Offering, r.Currency)},
		{"Devise", r.Currency},
		{"Soumis par", r.SubmittedBy},
		{"Soumis le", r.SubmittedAt.In(doc.GeneratedAt.Location()).Format("02/01/2006 15:04")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		setFill(pdf, headerFill)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(60, 8, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, textColor)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	if doc.Options.IncludeNotes && r.Notes != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, tr("Notes"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(*r.Notes), "1", "L", false)
	}
}

// cp1252 は標準フォント用に UTF-8 を Windows-1252 に変換する。表せない文字は置き換える。
func cp1252() func(string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	return func(s string) string {
		out, err := enc.String(s)
		if err != nil {
			return s
		}
		return out
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func periodLabel(r reports.DateRange) string {
	start, end := "début", "aujourd'hui"
	if r.Start != nil {
		start = r.Start.Format("02/01/2006")
	}
	if r.End != nil {
		end = r.End.Format("02/01/2006")
	}
	return start + " - " + end
}

func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
