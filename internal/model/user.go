// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a persisted salary entry.
// Name keeps the casing of the first upload that created it; only Salary
// changes afterwards.
type User struct {
	ID        int64           `json:"-"`
	Name      string          `json:"name"`
	Salary    decimal.Decimal `json:"salary"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// IsNew returns true if the user has not been stored yet.
func (u *User) IsNew() bool {
	return u.ID == 0
}

// Key returns the canonical name used for matching.
func (u *User) Key() string {
	return CanonicalName(u.Name)
}

// SalaryRecord is a single parsed CSV data row.
type SalaryRecord struct {
	Name   string
	Salary decimal.Decimal
}

// CanonicalName upper-cases ASCII letters and leaves every other byte as is.
// The result does not depend on locale.
func CanonicalName(name string) string {
	// Fast path: nothing to change.
	i := 0
	for ; i < len(name); i++ {
		if c := name[i]; c >= 'a' && c <= 'z' {
			break
		}
	}
	if i == len(name) {
		return name
	}

	b := []byte(name)
	for ; i < len(b); i++ {
		if c := b[i]; c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
