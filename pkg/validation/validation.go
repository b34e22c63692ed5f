package validation

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// AppError converts the list into a 422 with one detail per field.
func (v ValidationErrors) AppError() *apperrors.AppError {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return apperrors.Validation(v.Error(), details)
}

// ToAppError turns the result of Struct into a 422. Nil stays nil.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}
	return apperrors.Validation("Invalid input", map[string]any{"error": err.Error()})
}

var placeholderRegex = regexp.MustCompile(`\{[^{}]*\}`)

// New returns a validator with the tags shared by every service registered.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	tags := map[string]validator.Func{
		"hhmm":                  validateTimeOfDay,
		"hhmm_end":              validateEndOfWindow,
		"weekday":               validateWeekday,
		"iana_tz":               validateTimezone,
		"template_placeholders": validatePlaceholders,
	}
	for _, tag := range slices.Sorted(maps.Keys(tags)) {
		if err := v.RegisterValidation(tag, tags[tag]); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return v
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := clock.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateEndOfWindow(fl validator.FieldLevel) bool {
	return fl.Field().String() == "24:00" || validateTimeOfDay(fl)
}

func validateWeekday(fl validator.FieldLevel) bool {
	return config.Weekday(fl.Field().String()).Valid()
}

func validateTimezone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func validatePlaceholders(fl validator.FieldLevel) bool {
	for _, token := range placeholderRegex.FindAllString(fl.Field().String(), -1) {
		if !slices.Contains(model.TemplatePlaceholders, token) {
			return false
		}
	}
	return true
}

// Struct validates s and translates failures into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Translate(validationErrs)
		}
		return err
	}
	return nil
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a phone number in E.164 format", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "hhmm", "hhmm_end":
			message = fmt.Sprintf("%s must be a 24-hour time in HH:MM format", err.Field())
		case "weekday":
			message = fmt.Sprintf("%s must be a weekday name (Monday-Sunday)", err.Field())
		case "iana_tz":
			message = fmt.Sprintf("%s must be a valid IANA timezone", err.Field())
		case "template_placeholders":
			message = fmt.Sprintf("%s may only use the placeholders %s", err.Field(), strings.Join(model.TemplatePlaceholders, ", "))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err),
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name: "ReminderPolicy.day_before.send_time" -> "day_before.send_time".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return err.Field()
}
