package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// BindRequest binds the body and query into req, fills `default` tags and
// validates. A nil result means req is ready to use.
func BindRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return bindFailure(err)
	}
	if err := defaults.Set(req); err != nil {
		return bindFailure(err)
	}
	err := requestValidator().StructCtx(c.Request().Context(), req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return bindFailure(err)
	}
	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = fieldError(fe)
	}
	return out
}

func bindFailure(err error) []ValidationError {
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_MALFORMED", Message: msg}}
}

// rule describes how a validator tag is rendered. paramKey is where the tag
// parameter lands in ValidationError.Params.
type rule struct {
	text     string
	paramKey string
}

var rules = map[string]rule{
	"required": {text: "is required"},
	"gt":       {text: "must be greater than %s", paramKey: "value"},
	"gte":      {text: "must be at least %s", paramKey: "min"},
	"lt":       {text: "must be less than %s", paramKey: "value"},
	"lte":      {text: "must be at most %s", paramKey: "max"},
	"min":      {text: "must be at least %s", paramKey: "min"},
	"max":      {text: "must be at most %s", paramKey: "max"},
	"oneof":    {text: "must be one of: %s", paramKey: "options"},
	"gtefield": {text: "must not be less than %s", paramKey: "field"},
	"ltfield":  {text: "must be less than %s", paramKey: "field"},
}

func fieldError(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: fe.Field(),
	}
	r, ok := rules[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		return ve
	}

	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.Join(strings.Fields(param), ", ")
	}
	text := r.text
	if strings.Contains(text, "%s") {
		text = fmt.Sprintf(text, param)
	}
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		text += " characters"
	}
	ve.Message = fe.Field() + " " + text

	if r.paramKey != "" {
		var v interface{} = fe.Param()
		if fe.Tag() == "oneof" {
			v = strings.Fields(fe.Param())
		}
		ve.Params = map[string]interface{}{r.paramKey: v}
	}
	return ve
}
