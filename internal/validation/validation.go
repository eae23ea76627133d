// Package validation checks request DTOs at the HTTP boundary and turns
// failures into ValidationErrors with one detail per field.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return lowerFirst(fld.Name)
		}
		return name
	})
	return v
}

// Struct validates s using its `validate` tags.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "body",
			Message: err.Error(),
		})
	}

	details := make([]apperrors.ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.ValidationDetail{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}

	return apperrors.NewValidationError("validation failed", details...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// StayWindow parses and checks a stay: check-out after check-in, check-in not
// before today and at most maxNights nights.
func StayWindow(checkIn, checkOut string, today time.Time, maxNights int) (domain.DateRange, error) {
	in, err := domain.ParseDate(checkIn)
	if err != nil {
		return domain.DateRange{}, apperrors.NewDateRangeError("invalid checkIn", apperrors.ValidationDetail{
			Field: "checkIn", Message: "checkIn must be a date formatted as YYYY-MM-DD",
		})
	}
	out, err := domain.ParseDate(checkOut)
	if err != nil {
		return domain.DateRange{}, apperrors.NewDateRangeError("invalid checkOut", apperrors.ValidationDetail{
			Field: "checkOut", Message: "checkOut must be a date formatted as YYYY-MM-DD",
		})
	}

	return CheckStay(domain.NewDateRange(in, out), today, maxNights)
}

// CheckStay applies the stay rules to an already parsed range.
func CheckStay(stay domain.DateRange, today time.Time, maxNights int) (domain.DateRange, error) {
	if !stay.Valid() {
		return stay, apperrors.NewDateRangeError("checkOut must be after checkIn", apperrors.ValidationDetail{
			Field: "checkOut", Message: "checkOut must be after checkIn",
		})
	}

	if stay.CheckIn.Before(domain.TruncateToDate(today)) {
		return stay, apperrors.NewDateRangeError("checkIn cannot be in the past", apperrors.ValidationDetail{
			Field: "checkIn", Message: "checkIn cannot be in the past",
		})
	}

	if maxNights > 0 && stay.Nights() > maxNights {
		msg := fmt.Sprintf("stay cannot exceed %d nights", maxNights)
		return stay, apperrors.NewDateRangeError(msg, apperrors.ValidationDetail{
			Field: "checkOut", Message: msg,
		})
	}

	return stay, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
