package utils

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/service-crm-api/models"
)

var (
	// PhonePattern accepts "+999999999", up to 15 digits
	PhonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	// TelegramPattern accepts "@username" with at least 5 name characters
	TelegramPattern = regexp.MustCompile(`^@[a-zA-Z0-9_]{5,32}$`)
)

// RegisterValidators adds the domain tags to gin's validator engine:
// order_category, order_status, phone, telegram_handle.
// Field errors report json names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validations := map[string]validator.Func{
		"order_category": func(fl validator.FieldLevel) bool {
			_, err := models.ParseCategory(fl.Field().String())
			return err == nil
		},
		"order_status": func(fl validator.FieldLevel) bool {
			_, err := models.ParseStatus(fl.Field().String())
			return err == nil
		},
		"phone": func(fl validator.FieldLevel) bool {
			return PhonePattern.MatchString(fl.Field().String())
		},
		"telegram_handle": func(fl validator.FieldLevel) bool {
			return TelegramPattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
