package model

import (
	"errors"
	"strings"
)

// SortField selects the ordering of query results.
type SortField string

const (
	SortNone   SortField = ""
	SortName   SortField = "NAME"
	SortSalary SortField = "SALARY"
)

// ErrInvalidSortField is returned when a sort value is not recognized.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses a case-insensitive sort value.
// An empty string or NONE means no explicit ordering.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToUpper(s) {
	case "", "NONE":
		return SortNone, nil
	case string(SortName):
		return SortName, nil
	case string(SortSalary):
		return SortSalary, nil
	default:
		return SortNone, ErrInvalidSortField
	}
}

// Column returns the users table column for the field.
func (f SortField) Column() string {
	switch f {
	case SortName:
		return "name"
	case SortSalary:
		return "salary"
	default:
		return "id"
	}
}
