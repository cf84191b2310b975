// Package validate は go-playground/validator に英語メッセージと JSON 名を載せたもの。
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"ResumeSection-backend/internal/platform/apierr"
)

type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーの項目名は json タグの名前で返す
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Sprintf("validate: register translations: %v", err))
	}
	return &Validator{v: v, trans: trans}
}

// Register は独自タグとそのメッセージを登録する。{0} は項目名に置き換わる。
// 初期化時にだけ呼ぶこと。
func (x *Validator) Register(tag string, fn validator.Func, message string) error {
	if err := x.v.RegisterValidation(tag, fn); err != nil {
		return err
	}
	return x.v.RegisterTranslation(tag, x.trans,
		func(ut ut.Translator) error { return ut.Add(tag, message, true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		})
}

// Struct は s を検証し、失敗した項目を全て返す。成功時は nil。
func (x *Validator) Struct(s any) []apierr.FieldError {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apierr.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]apierr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apierr.FieldError{Field: fieldPath(fe), Message: fe.Translate(x.trans)})
	}
	return out
}

// fieldPath は先頭の構造体名を除いた json 名のパス。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
