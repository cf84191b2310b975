package reports

import (
	"io"
	"time"
)

type ExportOptions struct {
	IncludeStats   bool
	IncludeDetails bool
	IncludeNotes   bool
}

// DefaultExportOptions は統計と明細を含め、備考は含めない。
func DefaultExportOptions() ExportOptions {
	return ExportOptions{IncludeStats: true, IncludeDetails: true}
}

// Document はレンダラに渡す書き出し内容。Reports は範囲で絞り込み済み、集計は Aggregator で計算済み。
type Document struct {
	Title       string
	GeneratedAt time.Time
	Currency    string
	Range       DateRange
	Reports     []ActivityReport
	Totals      Totals
	Sections    []SectionTotals
	Options     ExportOptions
	// Single は1件の報告を詳細表示するとき true。
	Single bool
}

// Renderer は Document を特定の形式で書き出す。
type Renderer interface {
	Format() string
	ContentType() string
	Extension() string
	Render(w io.Writer, doc Document) error
}
