package model

import (
	"fmt"

	"configtree/internal/validators"
)

// SetField assigns a schema header field only when value passes that field's
// validator. It reports whether the value was accepted; the form marks the
// field invalid otherwise.
func (s *Schema) SetField(field, value string) (bool, error) {
	switch field {
	case "name":
		return setIfValid(&s.Name, value, validators.IsIdentifier), nil
	case "desc":
		return setIfValid(&s.Desc, value, validators.IsNonBlank), nil
	case "version":
		return setIfValid(&s.Version, value, validators.IsVersion), nil
	default:
		return false, fmt.Errorf("unknown schema field %q", field)
	}
}

// SetField assigns a config header field only when value passes its validator.
func (c *Config) SetField(field, value string) (bool, error) {
	switch field {
	case "name":
		return setIfValid(&c.Name, value, validators.IsIdentifier), nil
	case "desc":
		return setIfValid(&c.Desc, value, validators.IsNonBlank), nil
	default:
		return false, fmt.Errorf("unknown config field %q", field)
	}
}

func setIfValid(dst *string, value string, valid func(string) bool) bool {
	if !valid(value) {
		return false
	}
	*dst = value
	return true
}
