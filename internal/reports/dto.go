package reports

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateReportRequest は正規化後の提出内容。
type CreateReportRequest struct {
	Date           string           `json:"date" validate:"required,isodate"`
	Preacher       string           `json:"preacher" validate:"required,max=120"`
	TotalAttendees *int             `json:"total_attendees" validate:"required,gte=0"`
	Men            *int             `json:"men,omitempty" validate:"omitempty,gte=0"`
	Women          *int             `json:"women,omitempty" validate:"omitempty,gte=0"`
	Children       *int             `json:"children,omitempty" validate:"omitempty,gte=0"`
	Youth          *int             `json:"youth,omitempty" validate:"omitempty,gte=0"`
	Offering       *decimal.Decimal `json:"offering,omitempty" validate:"-"`
	Notes          *string          `json:"notes,omitempty" validate:"-"`
}

type CreateReportResponse struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ReportResponse struct {
	ID             string      `json:"id"`
	SectionID      int64       `json:"section_id"`
	SectionName    string      `json:"section_name,omitempty"`
	Date           string      `json:"date"`
	Preacher       string      `json:"preacher"`
	TotalAttendees int         `json:"total_attendees"`
	Men            int         `json:"men"`
	Women          int         `json:"women"`
	Children       int         `json:"children"`
	Youth          int         `json:"youth"`
	Offering       json.Number `json:"offering"`
	Currency       string      `json:"currency"`
	Notes          *string     `json:"notes"`
	SubmittedBy    string      `json:"submitted_by"`
	SubmittedAt    time.Time   `json:"submitted_at"`
}

type TotalsResponse struct {
	Count          int         `json:"count"`
	TotalAttendees int64       `json:"total_attendees"`
	TotalOffering  json.Number `json:"total_offering"`
}

type SectionTotalsResponse struct {
	SectionID   int64  `json:"section_id"`
	SectionName string `json:"section_name,omitempty"`
	TotalsResponse
}

type SummaryResponse struct {
	Start          *string                 `json:"start"`
	End            *string                 `json:"end"`
	Currency       string                  `json:"currency"`
	ActiveSections int                     `json:"active_sections"`
	Sections       []SectionTotalsResponse `json:"sections"`
	TotalsResponse
}

type WeeklyStatsResponse struct {
	SectionID                 int64       `json:"section_id"`
	WeekStart                 string      `json:"week_start"`
	WeekEnd                   string      `json:"week_end"`
	TotalOffering             json.Number `json:"total_offering"`
	TotalAttendees            int64       `json:"total_attendees"`
	TotalServices             int         `json:"total_services"`
	AverageOfferingPerService json.Number `json:"average_offering_per_service"`
	Currency                  string      `json:"currency"`
}

type CurrentOfferingResponse struct {
	SectionID     *int64      `json:"section_id"`
	WeekStart     string      `json:"week_start"`
	WeekEnd       string      `json:"week_end"`
	TotalOffering json.Number `json:"total_offering"`
	Currency      string      `json:"currency"`
}

// ExportRequest は書き出し対象と出力形式。
type ExportRequest struct {
	Range     DateRange
	SectionID *int64
	Format    string
	Options   ExportOptions
}

type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

func money(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }

func (r ActivityReport) toDTO() ReportResponse {
	return ReportResponse{
		ID:             r.ID,
		SectionID:      r.SectionID,
		SectionName:    r.SectionName,
		Date:           r.Date.Format(DateLayout),
		Preacher:       r.Preacher,
		TotalAttendees: r.TotalAttendees,
		Men:            r.Men,
		Women:          r.Women,
		Children:       r.Children,
		Youth:          r.Youth,
		Offering:       money(r.Offering),
		Currency:       r.Currency,
		Notes:          r.Notes,
		SubmittedBy:    r.SubmittedBy,
		SubmittedAt:    r.SubmittedAt,
	}
}

func (t Totals) toDTO() TotalsResponse {
	return TotalsResponse{Count: t.Count, TotalAttendees: t.TotalAttendees, TotalOffering: money(t.TotalOffering)}
}

func (w WeeklyStats) toDTO(currency string) WeeklyStatsResponse {
	return WeeklyStatsResponse{
		SectionID:                 w.SectionID,
		WeekStart:                 w.WeekStart.Format(DateLayout),
		WeekEnd:                   w.WeekEnd.Format(DateLayout),
		TotalOffering:             money(w.TotalOffering),
		TotalAttendees:            w.TotalAttendees,
		TotalServices:             w.TotalServices,
		AverageOfferingPerService: money(w.AverageOfferingPerService()),
		Currency:                  currency,
	}
}

func toDTOs(rs []ActivityReport) []ReportResponse {
	out := make([]ReportResponse, 0, len(rs))
	for i := range rs {
		out = append(out, rs[i].toDTO())
	}
	return out
}
