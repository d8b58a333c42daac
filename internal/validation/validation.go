// Package validation configures gin's validator engine: JSON field names,
// English messages and the academy's custom tags.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"academy/internal/apperr"
	"academy/internal/schedule"
)

// custom validation tags
const (
	scheduleTag = "schedule"
	weekdayTag  = "weekday"
	notBlankTag = "notblank"
)

var (
	once       sync.Once
	engine     *validator.Validate
	translator ut.Translator
)

// Engine returns gin's validator with the academy's tags registered.
func Engine() *validator.Validate {
	once.Do(setup)
	return engine
}

func setup() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		v = validator.New()
		v.SetTagName("binding")
	}
	engine = v

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(engine, translator)

	// Use JSON tag names for errors instead of Go struct names.
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = engine.RegisterValidation(scheduleTag, validSchedule)
	_ = engine.RegisterValidation(weekdayTag, validWeekday)
	_ = engine.RegisterValidation(notBlankTag, notBlank)

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{scheduleTag, weekdayTag, notBlankTag} {
		_ = engine.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case scheduleTag:
		if err := schedule.Validate(fe.Value().(string)); err != nil {
			return fe.Field() + " is not a valid schedule: " + err.Error()
		}
		return fe.Field() + " is not a valid schedule"
	case weekdayTag:
		return fe.Field() + " must be a weekday name"
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	default:
		return fe.Error()
	}
}

func validSchedule(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && schedule.Validate(s) == nil
}

func validWeekday(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && schedule.KnownDay(s)
}

func notBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && strings.TrimSpace(s) != ""
}

// Struct validates v against its binding tags and returns an
// INVALID_ARGUMENT error listing every failing field.
func Struct(v any) error {
	if err := Engine().Struct(v); err != nil {
		return Translate(err)
	}
	return nil
}

// Translate turns a binding or validation error into an INVALID_ARGUMENT
// error whose metadata maps JSON field names to messages.
func Translate(err error) error {
	Engine()
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err)
	}
	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Translate(translator)
		fields[fe.Field()] = msg
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return apperr.WithMetadata(apperr.CodeInvalidArgument, strings.Join(msgs, "; "), fields)
}
