package reports

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

// DB行に対応（スキャン用）
type reportRow struct {
	ID             string
	SectionID      int64
	SectionName    sql.NullString
	ReportDate     db.Date
	Preacher       string
	TotalAttendees int
	Men            int
	Women          int
	Children       int
	Youth          int
	Offering       decimal.Decimal
	Currency       string
	Notes          sql.NullString
	SubmittedBy    string
	SubmittedAt    db.Timestamp
}

func (r reportRow) toModel() ActivityReport {
	m := ActivityReport{
		ID:             r.ID,
		SectionID:      r.SectionID,
		SectionName:    r.SectionName.String,
		Date:           r.ReportDate.Time,
		Preacher:       r.Preacher,
		TotalAttendees: r.TotalAttendees,
		Men:            r.Men,
		Women:          r.Women,
		Children:       r.Children,
		Youth:          r.Youth,
		Offering:       r.Offering,
		Currency:       r.Currency,
		SubmittedBy:    r.SubmittedBy,
		SubmittedAt:    r.SubmittedAt.Time,
	}
	if r.Notes.Valid {
		n := r.Notes.String
		m.Notes = &n
	}
	return m
}

const selectReports = `
SELECT r.id, r.section_id, a.username, r.report_date, r.preacher, r.total_attendees,
       r.men, r.women, r.children, r.youth, r.offering, r.currency, r.notes,
       r.submitted_by, r.submitted_at
FROM reports r
LEFT JOIN accounts a ON a.id = r.section_id`

func scanReport(row interface{ Scan(...any) error }) (ActivityReport, error) {
	var r reportRow
	err := row.Scan(&r.ID, &r.SectionID, &r.SectionName, &r.ReportDate, &r.Preacher, &r.TotalAttendees,
		&r.Men, &r.Women, &r.Children, &r.Youth, &r.Offering, &r.Currency, &r.Notes,
		&r.SubmittedBy, &r.SubmittedAt)
	if err != nil {
		return ActivityReport{}, err
	}
	return r.toModel(), nil
}

// checkInvariants は保存前の最終確認。Validator を通った入力なら常に通る。
func checkInvariants(r *ActivityReport) error {
	var fields []apierr.FieldError
	add := func(f, m string) { fields = append(fields, apierr.FieldError{Field: f, Message: m}) }

	if r.SectionID <= 0 {
		add("section_id", "section_id is required")
	}
	if r.Date.IsZero() {
		add("date", "date is required")
	}
	if strings.TrimSpace(r.Preacher) == "" {
		add("preacher", "preacher is required")
	}
	for _, c := range []struct {
		name string
		v    int
	}{{"total_attendees", r.TotalAttendees}, {"men", r.Men}, {"women", r.Women}, {"children", r.Children}, {"youth", r.Youth}} {
		if c.v < 0 {
			add(c.name, c.name+" must be 0 or greater")
		}
	}
	if r.Offering.IsNegative() {
		add("offering", "offering must be 0 or greater")
	}
	if r.Currency == "" {
		add("currency", "currency is required")
	}
	if r.SubmittedBy == "" {
		add("submitted_by", "submitted_by is required")
	}
	if len(fields) > 0 {
		return apierr.ErrValidation(fields)
	}
	return nil
}

// Create は ID と提出時刻を割り当てて保存する。
func (s *Store) Create(ctx context.Context, r *ActivityReport) (string, error) {
	if err := checkInvariants(r); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = ulid.Make().String()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now()
	}
	r.SubmittedAt = db.NewTimestamp(r.SubmittedAt).Time
	r.Date = civilDate(r.Date)

	const q = `
INSERT INTO reports (id, section_id, report_date, preacher, total_attendees, men, women, children, youth,
                     offering, currency, notes, submitted_by, submitted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	var notes any
	if r.Notes != nil {
		notes = *r.Notes
	}
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.SectionID, db.NewDate(r.Date), r.Preacher, r.TotalAttendees, r.Men, r.Women, r.Children, r.Youth,
		r.Offering.StringFixed(2), r.Currency, notes, r.SubmittedBy, db.NewTimestamp(r.SubmittedAt))
	if err != nil {
		if db.IsForeignKey(err) {
			return "", apierr.ErrValidation([]apierr.FieldError{{Field: "section_id", Message: "section does not exist"}})
		}
		return "", err
	}
	return r.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (ActivityReport, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, selectReports+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ActivityReport{}, apierr.ErrNotFound("report not found")
	}
	return r, err
}

func (s *Store) ListBySection(ctx context.Context, sectionID int64, rng DateRange) ([]ActivityReport, error) {
	return s.list(ctx, &sectionID, rng)
}

func (s *Store) ListAll(ctx context.Context, rng DateRange) ([]ActivityReport, error) {
	return s.list(ctx, nil, rng)
}

// list: 条件に応じて動的WHERE、日付降順・提出時刻降順
func (s *Store) list(ctx context.Context, sectionID *int64, rng DateRange) ([]ActivityReport, error) {
	var (
		sb   strings.Builder
		args []any
		cond []string
	)
	sb.WriteString(selectReports)
	if sectionID != nil {
		cond = append(cond, "r.section_id = ?")
		args = append(args, *sectionID)
	}
	if rng.Start != nil {
		cond = append(cond, "r.report_date >= ?")
		args = append(args, db.NewDate(*rng.Start))
	}
	if rng.End != nil {
		cond = append(cond, "r.report_date <= ?")
		args = append(args, db.NewDate(*rng.End))
	}
	if len(cond) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(cond, " AND "))
	}
	sb.WriteString(" ORDER BY r.report_date DESC, r.submitted_at DESC, r.id DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ActivityReport, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete は物理削除。対象が無ければ NotFound。
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apierr.ErrNotFound("report not found")
	}
	return nil
}

// CountBySection はアカウント削除前の参照確認に使う。
func (s *Store) CountBySection(ctx context.Context, sectionID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE section_id = ?`, sectionID).Scan(&n)
	return n, err
}
