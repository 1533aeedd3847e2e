package validator

import (
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// echoのValidatorとして登録するリクエスト検証
type RequestValidator struct {
	v *playground.Validate
}

func New() *RequestValidator {
	v := playground.New()
	// エラーの項目名はjsonタグの名前で返す
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// 最初に引っかかった項目を "field: tag" の形で返す
func Message(err error) string {
	verrs, ok := err.(playground.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid body"
	}
	fe := verrs[0]
	return fe.Field() + ": " + fe.Tag()
}

// 項目ごとの失敗タグ
func Fields(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
