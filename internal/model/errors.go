// Package model holds the schema and config documents edited by configtree,
// their validation rules and their JSON persistence.
package model

import (
	"fmt"

	"github.com/samber/lo"
)

// Entity kinds reported on a ValidationError.
const (
	EntitySchema = "schema"
	EntityGroup  = "group"
	EntityItem   = "item"
	EntityConfig = "config"
)

// ValidationError describes one violated rule on one entity. It is a value,
// not a Go error: validation accumulates these and never aborts.
type ValidationError struct {
	Message string `json:"message"`
	Entity  string `json:"entity"`
	Name    string `json:"name"`
	Field   string `json:"field"`
}

// NewValidationError builds a ValidationError.
func NewValidationError(message, entity, name, field string) ValidationError {
	return ValidationError{Message: message, Entity: entity, Name: name, Field: field}
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s (entity=%q name=%q field=%q)", e.Message, e.Entity, e.Name, e.Field)
}

// Messages returns the human readable message of every error, in order.
func Messages(errs []ValidationError) []string {
	return lo.Map(errs, func(e ValidationError, _ int) string { return e.Message })
}

// HasField reports whether any error points at field.
func HasField(errs []ValidationError, field string) bool {
	return lo.ContainsBy(errs, func(e ValidationError) bool { return e.Field == field })
}
