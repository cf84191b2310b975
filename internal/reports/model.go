package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// ActivityReport は1回の礼拝・集会の報告。作成後は変更しない。
type ActivityReport struct {
	ID             string
	SectionID      int64
	SectionName    string // accounts.username（保存はしない）
	Date           time.Time
	Preacher       string
	TotalAttendees int
	Men            int
	Women          int
	Children       int
	Youth          int
	Offering       decimal.Decimal
	Currency       string
	Notes          *string
	SubmittedBy    string
	SubmittedAt    time.Time
}

// DateRange は両端を含む日付範囲。nil の端は無制限。
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) Contains(d time.Time) bool {
	d = civilDate(d)
	if r.Start != nil && d.Before(civilDate(*r.Start)) {
		return false
	}
	if r.End != nil && d.After(civilDate(*r.End)) {
		return false
	}
	return true
}

func (r DateRange) IsZero() bool { return r.Start == nil && r.End == nil }

// WeeklyStats は1セクション1週間分の集計。保存せず都度計算する。
type WeeklyStats struct {
	SectionID      int64
	WeekStart      time.Time
	WeekEnd        time.Time
	TotalOffering  decimal.Decimal
	TotalAttendees int64
	TotalServices  int
}

// AverageOfferingPerService は礼拝1回あたりの献金。礼拝が0回なら0。
func (w WeeklyStats) AverageOfferingPerService() decimal.Decimal {
	if w.TotalServices == 0 {
		return decimal.Zero
	}
	return w.TotalOffering.DivRound(decimal.NewFromInt(int64(w.TotalServices)), 2)
}

type Totals struct {
	Count          int
	TotalAttendees int64
	TotalOffering  decimal.Decimal
}

type SectionTotals struct {
	SectionID   int64
	SectionName string
	Totals
}

type SectionGroup struct {
	SectionID int64
	Reports   []ActivityReport
}

// civilDate は時刻部分を落とした UTC の日付。
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
