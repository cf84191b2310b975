package reports_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResumeSection-backend/internal/export"
	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/db/dbtest"
	"ResumeSection-backend/internal/reports"
)

type fixture struct {
	conn  *sql.DB
	svc   *reports.Service
	admin auth.Identity
}

func newFixture(t *testing.T, viewerAccess string) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	adminID := dbtest.InsertAccount(t, conn, "admin", "admin")
	svc := reports.NewService(conn, reports.Options{
		Currency:     "XOF",
		WeekStart:    time.Monday,
		ViewerAccess: viewerAccess,
		Renderers:    []reports.Renderer{export.NewPDFRenderer("Test", zerolog.Nop()), export.NewCSVRenderer()},
		Logger:       zerolog.Nop(),
	})
	return &fixture{conn: conn, svc: svc, admin: auth.Identity{UserID: adminID, Username: "admin", Role: auth.RoleAdmin}}
}

func (f *fixture) section(t *testing.T, name string) auth.Identity {
	t.Helper()
	id := dbtest.InsertAccount(t, f.conn, name, "section")
	return auth.Identity{UserID: id, Username: name, Role: auth.RoleSection}
}

func (f *fixture) submit(t *testing.T, who auth.Identity, date string, attendees int, offering string) string {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), who, map[string]any{
		"date":            date,
		"preacher":        "Jean",
		"total_attendees": json.Number(fmt.Sprint(attendees)),
		"offering":        json.Number(offering),
	})
	require.NoError(t, err)
	return res.ID
}

func ptr[T any](v T) *T { return &v }

func mustDate(s string) *time.Time {
	t, err := time.Parse(reports.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSubmitThenWeeklyStatsScenario(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	sec := f.section(t, "cocody")

	res, err := f.svc.Submit(ctx, sec, map[string]any{
		"date": "2024-01-15", "preacher": "Jean", "totalAttendees": json.Number("50"),
		"men": json.Number("20"), "women": json.Number("25"), "offering": json.Number("15000"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	ws, err := f.svc.GetWeeklyStats(ctx, sec, nil, mustDate("2024-01-16"))
	require.NoError(t, err)
	assert.Equal(t, "15000.00", ws.TotalOffering.String())
	assert.EqualValues(t, 50, ws.TotalAttendees)
	assert.Equal(t, 1, ws.TotalServices)
	assert.Equal(t, "2024-01-15", ws.WeekStart)
	assert.Equal(t, "2024-01-21", ws.WeekEnd)

	got, err := f.svc.Get(ctx, sec, res.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.UserID, got.SectionID)
	assert.Equal(t, "cocody", got.SubmittedBy)
	assert.Equal(t, "XOF", got.Currency)
}

func TestWeeklyAverageScenario(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	sec := f.section(t, "plateau")
	f.submit(t, sec, "2024-01-15", 10, "1000")
	f.submit(t, sec, "2024-01-18", 10, "2500")

	ws, err := f.svc.GetWeeklyStats(context.Background(), sec, nil, mustDate("2024-01-20"))
	require.NoError(t, err)
	assert.Equal(t, "3500.00", ws.TotalOffering.String())
	assert.Equal(t, "1750.00", ws.AverageOfferingPerService.String())
}

func TestSubmitRules(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	in := map[string]any{"date": "2024-01-15", "preacher": "Jean", "total_attendees": json.Number("1")}

	_, err := f.svc.Submit(ctx, f.admin, in)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	_, err = f.svc.Submit(ctx, auth.Identity{UserID: 1, Role: auth.RoleViewer}, in)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	sec := f.section(t, "a")
	_, err = f.svc.Submit(ctx, sec, map[string]any{"date": "x"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestNoScopeLeakage(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	rnd := rand.New(rand.NewSource(7))

	secs := []auth.Identity{f.section(t, "s1"), f.section(t, "s2"), f.section(t, "s3")}
	total := 0
	for i := 0; i < 30; i++ {
		who := secs[rnd.Intn(len(secs))]
		f.submit(t, who, fmt.Sprintf("2024-01-%02d", rnd.Intn(28)+1), rnd.Intn(100), fmt.Sprint(rnd.Intn(10000)))
		total++
	}

	seen := 0
	for _, sec := range secs {
		items, err := f.svc.GetReports(ctx, sec, reports.DateRange{})
		require.NoError(t, err)
		for _, r := range items {
			assert.Equal(t, sec.UserID, r.SectionID)
		}
		seen += len(items)

		sum, err := f.svc.GetSummary(ctx, sec, reports.DateRange{})
		require.NoError(t, err)
		assert.Equal(t, len(items), sum.Count)
		assert.LessOrEqual(t, sum.ActiveSections, 1)
	}
	assert.Equal(t, total, seen)

	all, err := f.svc.GetReports(ctx, f.admin, reports.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, total)

	ranged, err := f.svc.GetReports(ctx, f.admin, reports.DateRange{Start: mustDate("2024-01-10"), End: mustDate("2024-01-20")})
	require.NoError(t, err)
	for _, r := range ranged {
		assert.GreaterOrEqual(t, r.Date, "2024-01-10")
		assert.LessOrEqual(t, r.Date, "2024-01-20")
	}
}

func TestSummaryBreakdown(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	a, b := f.section(t, "alpha"), f.section(t, "bravo")
	f.submit(t, a, "2024-01-15", 10, "100.25")
	f.submit(t, a, "2024-01-16", 20, "200")
	f.submit(t, b, "2024-01-16", 5, "50")

	sum, err := f.svc.GetSummary(ctx, f.admin, reports.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.EqualValues(t, 35, sum.TotalAttendees)
	assert.Equal(t, "350.25", sum.TotalOffering.String())
	assert.Equal(t, 2, sum.ActiveSections)
	require.Len(t, sum.Sections, 2)
	assert.Equal(t, "alpha", sum.Sections[0].SectionName)
	assert.Equal(t, 2, sum.Sections[0].Count)
	assert.Equal(t, "50.00", sum.Sections[1].TotalOffering.String())

	empty, err := f.svc.GetSummary(ctx, f.admin, reports.DateRange{Start: mustDate("2030-01-01")})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Equal(t, "0.00", empty.TotalOffering.String())
	assert.NotNil(t, empty.Sections)
}

func TestWeeklyStatsScopeRules(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	a, b := f.section(t, "alpha"), f.section(t, "bravo")
	f.submit(t, a, "2024-01-15", 10, "100")
	f.submit(t, b, "2024-01-16", 5, "50")
	f.submit(t, b, "2024-01-08", 5, "70")

	_, err := f.svc.GetWeeklyStats(ctx, a, ptr(b.UserID), mustDate("2024-01-16"))
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	_, err = f.svc.GetWeeklyStats(ctx, f.admin, nil, nil)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	ws, err := f.svc.GetWeeklyStats(ctx, f.admin, ptr(b.UserID), mustDate("2024-01-16"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", ws.TotalOffering.String())

	_, err = f.svc.GetAllWeeklyStats(ctx, a, nil)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	all, err := f.svc.GetAllWeeklyStats(ctx, f.admin, mustDate("2024-01-17"))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.UserID, all[0].SectionID)
	assert.Equal(t, b.UserID, all[1].SectionID)

	prev, err := f.svc.GetAllWeeklyStats(ctx, f.admin, mustDate("2024-01-09"))
	require.NoError(t, err)
	require.Len(t, prev, 1)
	assert.Equal(t, b.UserID, prev[0].SectionID)

	none, err := f.svc.GetAllWeeklyStats(ctx, f.admin, mustDate("2023-06-01"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCurrentOffering(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	a, b := f.section(t, "alpha"), f.section(t, "bravo")

	today := time.Now().UTC().Format(reports.DateLayout)
	f.submit(t, a, today, 10, "100")
	f.submit(t, b, today, 10, "250")

	mine, err := f.svc.GetCurrentOffering(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, mine.SectionID)
	assert.Equal(t, a.UserID, *mine.SectionID)
	assert.Equal(t, "100.00", mine.TotalOffering.String())

	all, err := f.svc.GetCurrentOffering(ctx, f.admin)
	require.NoError(t, err)
	assert.Nil(t, all.SectionID)
	assert.Equal(t, "350.00", all.TotalOffering.String())
}

func TestDeleteScenario(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	a, b := f.section(t, "alpha"), f.section(t, "bravo")
	id := f.submit(t, a, "2024-01-15", 10, "100")
	other := f.submit(t, a, "2024-01-16", 10, "100")

	err := f.svc.Delete(ctx, b, id)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	err = f.svc.Delete(ctx, auth.Identity{UserID: 99, Role: auth.RoleViewer}, id)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	require.NoError(t, f.svc.Delete(ctx, a, id))

	items, err := f.svc.GetReports(ctx, a, reports.DateRange{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, other, items[0].ID)

	_, err = f.svc.Get(ctx, a, id)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.True(t, apierr.Is(f.svc.Delete(ctx, a, id), apierr.CodeNotFound))

	require.NoError(t, f.svc.Delete(ctx, f.admin, other))
}

func TestViewerPolicy(t *testing.T) {
	ctx := context.Background()
	viewer := auth.Identity{UserID: 50, Username: "v", Role: auth.RoleViewer}

	ro := newFixture(t, config.ViewerReadOnly)
	sec := ro.section(t, "alpha")
	ro.submit(t, sec, "2024-01-15", 1, "1")
	items, err := ro.svc.GetReports(ctx, viewer, reports.DateRange{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	stats, err := ro.svc.GetAllWeeklyStats(ctx, viewer, mustDate("2024-01-16"))
	require.NoError(t, err)
	assert.Len(t, stats, 1)

	none := newFixture(t, config.ViewerNone)
	_, err = none.svc.GetReports(ctx, viewer, reports.DateRange{})
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))
	_, err = none.svc.GetAllWeeklyStats(ctx, viewer, nil)
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))
}

func TestExport(t *testing.T) {
	f := newFixture(t, config.ViewerReadOnly)
	ctx := context.Background()
	a, b := f.section(t, "alpha"), f.section(t, "bravo")
	id := f.submit(t, a, "2024-01-15", 10, "100")
	f.submit(t, b, "2024-01-16", 5, "50")

	pdf, err := f.svc.Export(ctx, f.admin, reports.ExportRequest{Options: reports.DefaultExportOptions()})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.Equal(t, "resume.pdf", pdf.Filename)
	_, err = export.ValidatePDF(pdf.Body)
	require.NoError(t, err)

	csv, err := f.svc.Export(ctx, a, reports.ExportRequest{Format: "csv", Options: reports.DefaultExportOptions(),
		Range: reports.DateRange{Start: mustDate("2024-01-01"), End: mustDate("2024-01-31")}})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("section_%d_2024-01-01_2024-01-31.csv", a.UserID), csv.Filename)
	assert.Contains(t, string(csv.Body), "alpha")
	assert.NotContains(t, string(csv.Body), "bravo")

	_, err = f.svc.Export(ctx, a, reports.ExportRequest{SectionID: ptr(b.UserID)})
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))

	sec, err := f.svc.Export(ctx, f.admin, reports.ExportRequest{Format: "csv", SectionID: ptr(b.UserID), Options: reports.DefaultExportOptions()})
	require.NoError(t, err)
	assert.NotContains(t, string(sec.Body), "alpha")

	_, err = f.svc.Export(ctx, f.admin, reports.ExportRequest{Format: "docx"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	one, err := f.svc.ExportReport(ctx, a, id, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "rapport_"+id+".pdf", one.Filename)

	_, err = f.svc.ExportReport(ctx, b, id, "pdf")
	assert.True(t, apierr.Is(err, apierr.CodePermissionDenied))
}
