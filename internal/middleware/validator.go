package middleware

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Input validation and sanitization utilities

// tableNamePattern accepts "table" or "schema.table" made of identifier characters.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]{0,62}(\.[A-Za-z_][A-Za-z0-9_$]{0,62})?$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("tablename", func(fl validator.FieldLevel) bool {
			return tableNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidationError is returned for a request body that fails its `validate` tags.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Tag)
}

// ValidateStruct checks v against its `validate` tags and reports the first failure.
func ValidateStruct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &ValidationError{Field: ve[0].Namespace(), Tag: ve[0].Tag()}
	}
	return err
}

// ValidateTableName checks a single datasource table name.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return &ValidationError{Field: "tableName", Tag: "tablename"}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
