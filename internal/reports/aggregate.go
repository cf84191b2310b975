package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator は報告列から集計値を計算する。状態を持たない。
type Aggregator struct {
	// Anchor は週の始まりの曜日。
	Anchor time.Weekday
}

func NewAggregator(anchor time.Weekday) Aggregator {
	return Aggregator{Anchor: anchor}
}

// WeekBounds は ref を含む週の初日と最終日（両端含む）。
func (a Aggregator) WeekBounds(ref time.Time) (time.Time, time.Time) {
	d := civilDate(ref)
	offset := (int(d.Weekday()) - int(a.Anchor) + 7) % 7
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// WeeklyStats は sectionID の ref 週の集計。該当が無ければ0の集計を返す。
func (a Aggregator) WeeklyStats(reports []ActivityReport, sectionID int64, ref time.Time) WeeklyStats {
	start, end := a.WeekBounds(ref)
	ws := WeeklyStats{SectionID: sectionID, WeekStart: start, WeekEnd: end, TotalOffering: decimal.Zero}
	week := DateRange{Start: &start, End: &end}
	for _, r := range reports {
		if r.SectionID != sectionID || !week.Contains(r.Date) {
			continue
		}
		ws.add(r)
	}
	return ws
}

// AllWeeklyStats は ref 週に報告があるセクションだけを sectionID 昇順で返す。
func (a Aggregator) AllWeeklyStats(reports []ActivityReport, ref time.Time) []WeeklyStats {
	start, end := a.WeekBounds(ref)
	week := DateRange{Start: &start, End: &end}

	bySection := make(map[int64]*WeeklyStats)
	for _, r := range reports {
		if !week.Contains(r.Date) {
			continue
		}
		ws, ok := bySection[r.SectionID]
		if !ok {
			ws = &WeeklyStats{SectionID: r.SectionID, WeekStart: start, WeekEnd: end, TotalOffering: decimal.Zero}
			bySection[r.SectionID] = ws
		}
		ws.add(r)
	}

	out := make([]WeeklyStats, 0, len(bySection))
	for _, ws := range bySection {
		out = append(out, *ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out
}

func (w *WeeklyStats) add(r ActivityReport) {
	w.TotalOffering = w.TotalOffering.Add(r.Offering)
	w.TotalAttendees += int64(r.TotalAttendees)
	w.TotalServices++
}

// SummaryTotals は渡された列をそのまま合計する。範囲の絞り込みは呼び出し側で済ませておくこと。
func (a Aggregator) SummaryTotals(reports []ActivityReport) Totals {
	t := Totals{TotalOffering: decimal.Zero}
	for _, r := range reports {
		t.add(r)
	}
	return t
}

func (t *Totals) add(r ActivityReport) {
	t.Count++
	t.TotalAttendees += int64(r.TotalAttendees)
	t.TotalOffering = t.TotalOffering.Add(r.Offering)
}

// GroupBySection はセクション昇順、各グループ内は日付降順。
func (a Aggregator) GroupBySection(reports []ActivityReport) []SectionGroup {
	idx := make(map[int64]int)
	var out []SectionGroup
	for _, r := range reports {
		i, ok := idx[r.SectionID]
		if !ok {
			i = len(out)
			idx[r.SectionID] = i
			out = append(out, SectionGroup{SectionID: r.SectionID})
		}
		out[i].Reports = append(out[i].Reports, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	for i := range out {
		sortByDateDesc(out[i].Reports)
	}
	return out
}

// SectionTotals はセクションごとの件数・出席者・献金。セクション昇順。
func (a Aggregator) SectionTotals(reports []ActivityReport) []SectionTotals {
	groups := a.GroupBySection(reports)
	out := make([]SectionTotals, 0, len(groups))
	for _, g := range groups {
		st := SectionTotals{SectionID: g.SectionID, Totals: a.SummaryTotals(g.Reports)}
		for _, r := range g.Reports {
			if r.SectionName != "" {
				st.SectionName = r.SectionName
				break
			}
		}
		out = append(out, st)
	}
	return out
}

func sortByDateDesc(rs []ActivityReport) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.After(rs[j].Date)
		}
		return rs[i].SubmittedAt.After(rs[j].SubmittedAt)
	})
}
