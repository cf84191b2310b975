package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ResumeSection-backend/internal/reports"
)

// CSVRenderer は表計算ソフト向けの ; 区切り CSV（UTF-8 BOM 付き）。
type CSVRenderer struct{}

func NewCSVRenderer() CSVRenderer { return CSVRenderer{} }

func (CSVRenderer) Format() string      { return "csv" }
func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Extension() string   { return "csv" }

func (CSVRenderer) Render(out io.Writer, doc reports.Document) error {
	// Excel が文字化けしないよう BOM を付ける
	enc := unicode.UTF8BOM.NewEncoder()
	tw := transform.NewWriter(out, enc)
	w := csv.NewWriter(tw)
	w.Comma = ';'

	if doc.Options.IncludeDetails || doc.Single {
		header := []string{"id", "date", "section_id", "section", "preacher", "total_attendees",
			"men", "women", "children", "youth", "offering", "currency", "submitted_by"}
		if doc.Options.IncludeNotes {
			header = append(header, "notes")
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, r := range doc.Reports {
			rec := []string{
				r.ID,
				r.Date.Format(reports.DateLayout),
				strconv.FormatInt(r.SectionID, 10),
				safeCell(r.SectionName),
				safeCell(r.Preacher),
				strconv.Itoa(r.TotalAttendees),
				strconv.Itoa(r.Men),
				strconv.Itoa(r.Women),
				strconv.Itoa(r.Children),
				strconv.Itoa(r.Youth),
				r.Offering.StringFixed(2),
				r.Currency,
				safeCell(r.SubmittedBy),
			}
			if doc.Options.IncludeNotes {
				notes := ""
				if r.Notes != nil {
					notes = *r.Notes
				}
				rec = append(rec, safeCell(notes))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}

	if doc.Options.IncludeStats && !doc.Single {
		if doc.Options.IncludeDetails {
			if err := w.Write(nil); err != nil {
				return err
			}
		}
		if err := w.Write([]string{"section_id", "section", "reports", "total_attendees", "total_offering", "currency"}); err != nil {
			return err
		}
		for _, st := range doc.Sections {
			if err := w.Write(statsRecord(strconv.FormatInt(st.SectionID, 10), st.SectionName, st.Totals, doc.Currency)); err != nil {
				return err
			}
		}
		if err := w.Write(statsRecord("", "TOTAL", doc.Totals, doc.Currency)); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return tw.Close()
}

func statsRecord(id, name string, t reports.Totals, currency string) []string {
	return []string{id, safeCell(name), strconv.Itoa(t.Count), strconv.FormatInt(t.TotalAttendees, 10), t.TotalOffering.StringFixed(2), currency}
}

// safeCell は表計算ソフトで数式として評価されないよう、先頭が = + - @ タブ CR のセルに ' を付ける。
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
