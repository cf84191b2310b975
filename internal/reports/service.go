package reports

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/db"
)

type Options struct {
	Currency       string
	WeekStart      time.Weekday
	Location       *time.Location
	NotesMaxLength int
	ViewerAccess   string
	Renderers      []Renderer
	Logger         zerolog.Logger
}

// OptionsFromConfig は設定ファイルの reports / auth 節から Options を作る。
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	wd, err := cfg.Reports.Weekday()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Currency:       cfg.Reports.Currency,
		WeekStart:      wd,
		Location:       cfg.Reports.Location(),
		NotesMaxLength: cfg.Reports.NotesMaxLength,
		ViewerAccess:   cfg.Auth.ViewerAccess,
	}, nil
}

// Service は報告の読み書きの入口。範囲解決と集計をここでまとめる。
type Service struct {
	db        *sql.DB
	store     *Store
	scopes    *ScopeResolver
	agg       Aggregator
	valid     *SubmissionValidator
	renderers map[string]Renderer
	currency  string
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(conn *sql.DB, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "XOF"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	rs := make(map[string]Renderer, len(opts.Renderers))
	for _, r := range opts.Renderers {
		rs[r.Format()] = r
	}
	return &Service{
		db:        conn,
		store:     NewStore(conn),
		scopes:    NewScopeResolver(opts.ViewerAccess),
		agg:       NewAggregator(opts.WeekStart),
		valid:     NewSubmissionValidator(opts.NotesMaxLength),
		renderers: rs,
		currency:  opts.Currency,
		loc:       opts.Location,
		log:       opts.Logger.With().Str("component", "reports").Logger(),
		now:       time.Now,
	}
}

// Store はアカウント削除時の参照確認用に公開する。
func (s *Service) Store() *Store { return s.store }

// today は集計タイムゾーンでの今日の日付。
func (s *Service) today() time.Time {
	return civilDate(s.now().In(s.loc))
}

// Submit は section アカウントの報告を検証して保存する。
func (s *Service) Submit(ctx context.Context, id auth.Identity, raw map[string]any) (CreateReportResponse, error) {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return CreateReportResponse{}, err
	}
	if scope.Unrestricted || scope.ReadOnly || scope.SectionID <= 0 {
		return CreateReportResponse{}, apierr.ErrForbidden("only section accounts can submit reports")
	}

	r, err := s.valid.ValidateRaw(raw)
	if err != nil {
		return CreateReportResponse{}, err
	}
	r.SectionID = scope.SectionID
	r.Currency = s.currency
	r.SubmittedBy = id.Username
	r.SubmittedAt = s.now()

	reportID, err := s.store.Create(ctx, &r)
	if err != nil {
		return CreateReportResponse{}, storeErr(err)
	}
	s.log.Info().Str("report_id", reportID).Int64("section_id", r.SectionID).Str("date", r.Date.Format(DateLayout)).Msg("report submitted")
	return CreateReportResponse{ID: reportID, SubmittedAt: r.SubmittedAt}, nil
}

// Get は範囲内の報告1件。範囲外は存在確認の後 PERMISSION_DENIED。
func (s *Service) Get(ctx context.Context, id auth.Identity, reportID string) (ReportResponse, error) {
	r, err := s.get(ctx, id, reportID)
	if err != nil {
		return ReportResponse{}, err
	}
	return r.toDTO(), nil
}

func (s *Service) get(ctx context.Context, id auth.Identity, reportID string) (ActivityReport, error) {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return ActivityReport{}, err
	}
	r, err := s.store.Get(ctx, reportID)
	if err != nil {
		return ActivityReport{}, storeErr(err)
	}
	if !scope.Allows(r.SectionID) {
		return ActivityReport{}, apierr.ErrForbidden("report is outside your scope")
	}
	return r, nil
}

// GetReports は範囲内の報告を日付降順で返す。
func (s *Service) GetReports(ctx context.Context, id auth.Identity, rng DateRange) ([]ReportResponse, error) {
	rs, _, err := s.scoped(ctx, id, rng)
	if err != nil {
		return nil, err
	}
	return toDTOs(rs), nil
}

func (s *Service) scoped(ctx context.Context, id auth.Identity, rng DateRange) ([]ActivityReport, Scope, error) {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return nil, Scope{}, err
	}
	var rs []ActivityReport
	if scope.Unrestricted {
		rs, err = s.store.ListAll(ctx, rng)
	} else {
		rs, err = s.store.ListBySection(ctx, scope.SectionID, rng)
	}
	if err != nil {
		return nil, Scope{}, storeErr(err)
	}
	return scope.filter(rs), scope, nil
}

// GetSummary は範囲内の合計とセクション別の内訳。
func (s *Service) GetSummary(ctx context.Context, id auth.Identity, rng DateRange) (SummaryResponse, error) {
	rs, _, err := s.scoped(ctx, id, rng)
	if err != nil {
		return SummaryResponse{}, err
	}
	sections := s.agg.SectionTotals(rs)
	out := SummaryResponse{
		Start:          dateStr(rng.Start),
		End:            dateStr(rng.End),
		Currency:       s.currency,
		ActiveSections: len(sections),
		Sections:       make([]SectionTotalsResponse, 0, len(sections)),
		TotalsResponse: s.agg.SummaryTotals(rs).toDTO(),
	}
	for _, st := range sections {
		out.Sections = append(out.Sections, SectionTotalsResponse{SectionID: st.SectionID, SectionName: st.SectionName, TotalsResponse: st.Totals.toDTO()})
	}
	return out, nil
}

// GetWeeklyStats は section なら自分の週集計。全体を見られるロールは sectionID の指定が必要。
func (s *Service) GetWeeklyStats(ctx context.Context, id auth.Identity, sectionID *int64, ref *time.Time) (WeeklyStatsResponse, error) {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return WeeklyStatsResponse{}, err
	}
	target := scope.SectionID
	switch {
	case scope.Unrestricted:
		if sectionID == nil {
			return WeeklyStatsResponse{}, apierr.ErrValidation([]apierr.FieldError{{Field: "section_id", Message: "section_id is required"}})
		}
		target = *sectionID
	case sectionID != nil && *sectionID != scope.SectionID:
		return WeeklyStatsResponse{}, apierr.ErrForbidden("section is outside your scope")
	}

	day := s.refOrToday(ref)
	start, end := s.agg.WeekBounds(day)
	rs, err := s.store.ListBySection(ctx, target, DateRange{Start: &start, End: &end})
	if err != nil {
		return WeeklyStatsResponse{}, storeErr(err)
	}
	return s.agg.WeeklyStats(rs, target, day).toDTO(s.currency), nil
}

// GetAllWeeklyStats は全体を見られるロール (admin と read_only の viewer) 専用。その週に報告のあるセクションだけを返す。
func (s *Service) GetAllWeeklyStats(ctx context.Context, id auth.Identity, ref *time.Time) ([]WeeklyStatsResponse, error) {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return nil, err
	}
	if !scope.Unrestricted {
		return nil, apierr.ErrForbidden("all-section statistics require an unrestricted scope")
	}
	day := s.refOrToday(ref)
	start, end := s.agg.WeekBounds(day)
	rs, err := s.store.ListAll(ctx, DateRange{Start: &start, End: &end})
	if err != nil {
		return nil, storeErr(err)
	}
	stats := s.agg.AllWeeklyStats(rs, day)
	out := make([]WeeklyStatsResponse, 0, len(stats))
	for _, ws := range stats {
		out = append(out, ws.toDTO(s.currency))
	}
	return out, nil
}

// GetCurrentOffering は今週の献金合計。section は自分の分、それ以外は全セクション分。
func (s *Service) GetCurrentOffering(ctx context.Context, id auth.Identity) (CurrentOfferingResponse, error) {
	day := s.today()
	start, end := s.agg.WeekBounds(day)
	rs, scope, err := s.scoped(ctx, id, DateRange{Start: &start, End: &end})
	if err != nil {
		return CurrentOfferingResponse{}, err
	}
	out := CurrentOfferingResponse{
		WeekStart:     start.Format(DateLayout),
		WeekEnd:       end.Format(DateLayout),
		TotalOffering: money(s.agg.SummaryTotals(rs).TotalOffering),
		Currency:      s.currency,
	}
	if !scope.Unrestricted {
		sid := scope.SectionID
		out.SectionID = &sid
	}
	return out, nil
}

// Delete は所有セクションか admin だけが行える。閲覧専用ロールは不可。
func (s *Service) Delete(ctx context.Context, id auth.Identity, reportID string) error {
	scope, err := s.scopes.Resolve(id)
	if err != nil {
		return err
	}
	if scope.ReadOnly {
		return apierr.ErrForbidden("read-only access")
	}
	err = db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		st := NewStore(tx)
		r, err := st.Get(ctx, reportID)
		if err != nil {
			return storeErr(err)
		}
		if !scope.Allows(r.SectionID) {
			return apierr.ErrForbidden("report is outside your scope")
		}
		return storeErr(st.Delete(ctx, reportID))
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("report_id", reportID).Int64("user_id", id.UserID).Msg("report deleted")
	return nil
}

// Export は範囲内の報告を指定形式の文書にする。
func (s *Service) Export(ctx context.Context, id auth.Identity, req ExportRequest) (ExportResult, error) {
	rend, err := s.renderer(req.Format)
	if err != nil {
		return ExportResult{}, err
	}
	rs, scope, err := s.scoped(ctx, id, req.Range)
	if err != nil {
		return ExportResult{}, err
	}

	title := "Résumé des rapports"
	name := "resume"
	if req.SectionID != nil {
		if !scope.Allows(*req.SectionID) {
			return ExportResult{}, apierr.ErrForbidden("section is outside your scope")
		}
		rs = Scope{SectionID: *req.SectionID}.filter(rs)
		title = fmt.Sprintf("Rapports de la section %d", *req.SectionID)
		if len(rs) > 0 && rs[0].SectionName != "" {
			title = "Rapports de la section " + rs[0].SectionName
		}
		name = fmt.Sprintf("section_%d", *req.SectionID)
	} else if !scope.Unrestricted {
		title = "Mes rapports"
		name = fmt.Sprintf("section_%d", scope.SectionID)
	}
	if req.Range.Start != nil || req.Range.End != nil {
		name += "_" + rangeSuffix(req.Range)
	}

	doc := s.document(title, rs, req.Range, req.Options)
	return s.render(rend, doc, name)
}

// ExportReport は報告1件の文書。
func (s *Service) ExportReport(ctx context.Context, id auth.Identity, reportID, format string) (ExportResult, error) {
	rend, err := s.renderer(format)
	if err != nil {
		return ExportResult{}, err
	}
	r, err := s.get(ctx, id, reportID)
	if err != nil {
		return ExportResult{}, err
	}
	opts := ExportOptions{IncludeStats: true, IncludeDetails: true, IncludeNotes: true}
	doc := s.document("Rapport du "+r.Date.Format("02/01/2006"), []ActivityReport{r}, DateRange{}, opts)
	doc.Single = true
	return s.render(rend, doc, "rapport_"+r.ID)
}

func (s *Service) document(title string, rs []ActivityReport, rng DateRange, opts ExportOptions) Document {
	return Document{
		Title:       title,
		GeneratedAt: s.now().In(s.loc),
		Currency:    s.currency,
		Range:       rng,
		Reports:     rs,
		Totals:      s.agg.SummaryTotals(rs),
		Sections:    s.agg.SectionTotals(rs),
		Options:     opts,
	}
}

func (s *Service) render(rend Renderer, doc Document, name string) (ExportResult, error) {
	var buf bytes.Buffer
	if err := rend.Render(&buf, doc); err != nil {
		s.log.Error().Err(err).Str("format", rend.Format()).Str("title", doc.Title).Msg("export rendering failed")
		return ExportResult{}, apierr.ErrInternal("export rendering failed", fmt.Errorf("render %s: %w", rend.Format(), err))
	}
	s.log.Info().Str("format", rend.Format()).Int("reports", len(doc.Reports)).Int("bytes", buf.Len()).Msg("export rendered")
	return ExportResult{
		Filename:    name + "." + rend.Extension(),
		ContentType: rend.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (s *Service) renderer(format string) (Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "pdf"
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, apierr.ErrInvalid(fmt.Sprintf("unsupported export format %q", format))
	}
	return r, nil
}

func (s *Service) refOrToday(ref *time.Time) time.Time {
	if ref != nil {
		return civilDate(*ref)
	}
	return s.today()
}

func dateStr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(DateLayout)
	return &v
}

func rangeSuffix(r DateRange) string {
	start, end := "debut", "fin"
	if r.Start != nil {
		start = r.Start.Format(DateLayout)
	}
	if r.End != nil {
		end = r.End.Format(DateLayout)
	}
	return start + "_" + end
}

// storeErr は一時的な障害を UNAVAILABLE に寄せる。それ以外はそのまま返す。
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var api *apierr.APIError
	if errors.As(err, &api) {
		return err
	}
	if db.IsTransient(err) {
		return apierr.ErrUnavailable("report store unavailable", err)
	}
	return fmt.Errorf("report store: %w", err)
}
