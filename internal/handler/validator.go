package handler

import (
    "errors"
    "fmt"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo.  Register it as
// e.Validator so c.Validate runs the struct tags of the request bodies.
type RequestValidator struct {
    v *validator.Validate
}

// promoCode accepts discount codes of letters, digits, '-' and '_'.
var promoCode validator.Func = func(fl validator.FieldLevel) bool {
    s := fl.Field().String()
    if s == "" || len(s) > 32 {
        return false
    }
    for _, r := range s {
        switch {
        case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
        default:
            return false
        }
    }
    return true
}

// NewRequestValidator returns a validator with the custom tags registered.
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    _ = v.RegisterValidation("promo", promoCode)
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator.  Field errors are flattened into one
// readable message.
func (rv *RequestValidator) Validate(i interface{}) error {
    err := rv.v.Struct(i)
    if err == nil {
        return nil
    }
    var fields validator.ValidationErrors
    if !errors.As(err, &fields) {
        return err
    }
    msgs := make([]string, 0, len(fields))
    for _, fe := range fields {
        if fe.Param() != "" {
            msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
        } else {
            msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
        }
    }
    return &validationError{msg: strings.Join(msgs, "; ")}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
