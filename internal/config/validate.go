package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("awsregion", func(fl validator.FieldLevel) bool {
		return regionPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every field and reports all invalid ones at once
func (c Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("invalid value provided for %s (%s=%v): %v",
			fieldErr.Namespace(), fieldErr.Tag(), fieldErr.Param(), fieldErr.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
