package apiclient

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator はリクエストボディ用のバリデータを生成する。
// decimal.DecimalとScheduleTimeは比較可能な値に変換してから検証する。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		t, ok := field.Interface().(ScheduleTime)
		if !ok || t.IsZero() {
			return nil
		}
		return t.Unix()
	}, ScheduleTime{})
	return v
}

// validateBody は構造体のリクエストボディを検証する。構造体以外は検証しない。
func (c *Client) validateBody(method, path string, body any) error {
	if body == nil {
		return nil
	}
	rv := reflect.ValueOf(body)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := c.validate.Struct(body)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &APIError{Kind: KindValidation, Method: method, Path: path, Message: "リクエストの検証に失敗しました", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, validationMessage(fe))
	}
	return &APIError{
		Kind:    KindValidation,
		Method:  method,
		Path:    path,
		Message: strings.Join(msgs, "; "),
		Err:     err,
	}
}

// validationMessage はフィールドエラーを表示用の文言に変換する。
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です", fe.Field())
	case "email":
		return fmt.Sprintf("%sはメールアドレスの形式で入力してください", fe.Field())
	case "url":
		return fmt.Sprintf("%sはURLの形式で入力してください", fe.Field())
	case "min":
		return fmt.Sprintf("%sは%s以上で入力してください", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%sは%s以下で入力してください", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%sは%sより大きい値で入力してください", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%sが不正です（%s）", fe.Field(), fe.Tag())
	}
}
