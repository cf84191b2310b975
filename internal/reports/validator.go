package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ResumeSection-backend/internal/platform/apierr"
	"ResumeSection-backend/internal/platform/db"
	"ResumeSection-backend/internal/platform/validate"
)

// 旧クライアントが送ってくる別名キー → 正式キー
var keyAliases = map[string]string{
	"totalAttendees":     "total_attendees",
	"totalFaithful":      "total_attendees",
	"total_faithful":     "total_attendees",
	"totalFaithfulCount": "total_attendees",
	"total":              "total_attendees",
	"menCount":           "men",
	"men_count":          "men",
	"womenCount":         "women",
	"women_count":        "women",
	"childrenCount":      "children",
	"children_count":     "children",
	"kids":               "children",
	"youthCount":         "youth",
	"youth_count":        "youth",
	"offrande":           "offering",
	"offre":              "offering",
	"don":                "offering",
	"note":               "notes",
	"predicateur":        "preacher",
	"report_date":        "date",
}

const maxPreacherLength = 120

var maxOffering = decimal.RequireFromString(db.MaxOffering)

type SubmissionValidator struct {
	v        *validate.Validator
	notesMax int
}

func NewSubmissionValidator(notesMax int) *SubmissionValidator {
	if notesMax <= 0 {
		notesMax = 5000
	}
	v := validate.New()
	if err := v.Register("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.ParseInLocation(DateLayout, fl.Field().String(), time.UTC)
		return err == nil
	}, "{0} must be a valid date in YYYY-MM-DD format"); err != nil {
		panic(fmt.Sprintf("reports: register isodate: %v", err))
	}
	return &SubmissionValidator{v: v, notesMax: notesMax}
}

// Normalize は別名キーを正式キーに寄せる。正式キーと別名が両方あれば正式キーを優先する。
func Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if canon, ok := keyAliases[k]; ok {
			if _, exists := raw[canon]; exists {
				continue
			}
			if _, done := out[canon]; done {
				continue
			}
			out[canon] = raw[k]
			continue
		}
		out[k] = raw[k]
	}
	return out
}

// Decode は正規化済みの入力を CreateReportRequest に詰める。型が合わない項目は項目別エラーにする。
func (sv *SubmissionValidator) Decode(raw map[string]any) (CreateReportRequest, []apierr.FieldError) {
	in := Normalize(raw)
	var (
		req    CreateReportRequest
		fields []apierr.FieldError
	)
	fail := func(field, msg string) { fields = append(fields, apierr.FieldError{Field: field, Message: msg}) }

	if s, ok, err := stringField(in, "date"); err != nil {
		fail("date", err.Error())
	} else if ok {
		req.Date = s
	}
	if s, ok, err := stringField(in, "preacher"); err != nil {
		fail("preacher", err.Error())
	} else if ok {
		req.Preacher = s
	}
	if s, ok, err := stringField(in, "notes"); err != nil {
		fail("notes", err.Error())
	} else if ok {
		req.Notes = &s
	}

	for _, f := range []struct {
		key string
		dst **int
	}{
		{"total_attendees", &req.TotalAttendees},
		{"men", &req.Men},
		{"women", &req.Women},
		{"children", &req.Children},
		{"youth", &req.Youth},
	} {
		n, ok, err := intField(in, f.key)
		if err != nil {
			fail(f.key, err.Error())
			continue
		}
		if ok {
			*f.dst = &n
		}
	}

	if d, ok, err := decimalField(in, "offering"); err != nil {
		fail("offering", err.Error())
	} else if ok {
		req.Offering = &d
	}
	return req, fields
}

// Validate は入力を検査し、保存可能な ActivityReport を返す。ID・セクション・提出時刻は埋めない。
func (sv *SubmissionValidator) Validate(req CreateReportRequest) (ActivityReport, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Preacher = strings.TrimSpace(req.Preacher)

	fields := sv.v.Struct(req)
	if req.Offering != nil {
		switch {
		case req.Offering.IsNegative():
			fields = append(fields, apierr.FieldError{Field: "offering", Message: "offering must be 0 or greater"})
		case req.Offering.GreaterThan(maxOffering):
			fields = append(fields, apierr.FieldError{Field: "offering", Message: "offering must be at most " + db.MaxOffering})
		case !req.Offering.Equal(req.Offering.Round(2)):
			fields = append(fields, apierr.FieldError{Field: "offering", Message: "offering must have at most 2 decimal places"})
		}
	}
	var notes *string
	if req.Notes != nil {
		n := strings.TrimSpace(*req.Notes)
		if utf8.RuneCountInString(n) > sv.notesMax {
			fields = append(fields, apierr.FieldError{Field: "notes", Message: fmt.Sprintf("notes must be at most %d characters", sv.notesMax)})
		}
		if n != "" {
			notes = &n
		}
	}
	if len(fields) > 0 {
		return ActivityReport{}, apierr.ErrValidation(fields)
	}

	date, _ := time.ParseInLocation(DateLayout, req.Date, time.UTC)
	r := ActivityReport{
		Date:           date,
		Preacher:       req.Preacher,
		TotalAttendees: *req.TotalAttendees,
		Men:            intOrZero(req.Men),
		Women:          intOrZero(req.Women),
		Children:       intOrZero(req.Children),
		Youth:          intOrZero(req.Youth),
		Offering:       decimal.Zero,
		Notes:          notes,
	}
	if req.Offering != nil {
		r.Offering = req.Offering.Round(2)
	}
	return r, nil
}

// ValidateRaw は Decode と Validate をまとめて行い、両方の項目別エラーを合わせて返す。
func (sv *SubmissionValidator) ValidateRaw(raw map[string]any) (ActivityReport, error) {
	req, decodeFields := sv.Decode(raw)
	r, err := sv.Validate(req)
	if len(decodeFields) == 0 {
		return r, err
	}
	fields := decodeFields
	var ve *apierr.APIError
	if errors.As(err, &ve) {
		seen := make(map[string]bool, len(decodeFields))
		for _, f := range decodeFields {
			seen[f.Field] = true
		}
		for _, f := range ve.Fields {
			if !seen[f.Field] {
				fields = append(fields, f)
			}
		}
	}
	return ActivityReport{}, apierr.ErrValidation(fields)
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func stringField(in map[string]any, key string) (string, bool, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%s must be a string", key)
	}
	return s, true, nil
}

// numericString は JSON 数値・文字列を数値文字列に揃える。カンマ小数点と桁区切りの空白を許す。
func numericString(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case json.Number:
		return x.String(), true, nil
	case float64:
		return decimal.NewFromFloat(x).String(), true, nil
	case int:
		return fmt.Sprint(x), true, nil
	case int64:
		return fmt.Sprint(x), true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return "", false, nil
		}
		s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", ".").Replace(s)
		return s, true, nil
	}
	return "", false, fmt.Errorf("unsupported type %T", v)
}

func intField(in map[string]any, key string) (int, bool, error) {
	s, ok, err := numericString(in[key])
	if err != nil || !ok {
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a whole number", key)
		}
		return 0, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, false, fmt.Errorf("%s must be a whole number", key)
	}
	if !d.Abs().LessThan(decimal.NewFromInt(1 << 31)) {
		return 0, false, fmt.Errorf("%s is out of range", key)
	}
	return int(d.IntPart()), true, nil
}

func decimalField(in map[string]any, key string) (decimal.Decimal, bool, error) {
	s, ok, err := numericString(in[key])
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("%s must be a number", key)
	}
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("%s must be a number", key)
	}
	return d, true, nil
}
