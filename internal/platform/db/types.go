package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.000000"
)

// Date は時刻を持たない暦日。MySQL の DATE と SQLite の TEXT の両方を読める。
type Date struct{ time.Time }

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) Value() (driver.Value, error) { return d.Format(DateLayout), nil }

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("db.Date: cannot scan %T", src)
}

func (d *Date) parse(s string) error {
	// "2024-01-15" / "2024-01-15 00:00:00" / RFC3339 のどれでも受ける
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	p, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("db.Date: %w", err)
	}
	*d = p
	return nil
}

// Timestamp は UTC のマイクロ秒精度タイムスタンプ。
// SQLite でも文字列比較で時系列順になるよう固定長で書き込む。
type Timestamp struct{ time.Time }

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Microsecond)}
}

func (t Timestamp) Value() (driver.Value, error) { return t.UTC().Format(TimestampLayout), nil }

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (t *Timestamp) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case time.Time:
		*t = NewTimestamp(v)
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	case nil:
		*t = Timestamp{}
		return nil
	default:
		return fmt.Errorf("db.Timestamp: cannot scan %T", src)
	}
	for _, layout := range timestampLayouts {
		if p, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*t = NewTimestamp(p)
			return nil
		}
	}
	return fmt.Errorf("db.Timestamp: unrecognised value %q", s)
}
