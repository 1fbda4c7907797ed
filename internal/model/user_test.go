package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lower", "john", "JOHN"},
		{"mixed", "jOhN", "JOHN"},
		{"already upper", "BRUCE", "BRUCE"},
		{"empty", "", ""},
		{"keeps spaces", " john doe ", " JOHN DOE "},
		{"digits and punctuation", "o'neil-2", "O'NEIL-2"},
		{"non ascii untouched", "josé", "JOSé"},
		{"turkish dotless i untouched", "ıi", "ıI"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := CanonicalName(tt.in); got != tt.want {
				t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalName_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := "jared"
	_ = CanonicalName(in)

	if in != "jared" {
		t.Errorf("input mutated: %q", in)
	}
}

func TestUser_IsNew(t *testing.T) {
	t.Parallel()

	u := &User{Name: "John", Salary: decimal.NewFromInt(1)}
	if !u.IsNew() {
		t.Error("user without ID should be new")
	}

	u.ID = 42
	if u.IsNew() {
		t.Error("user with ID should not be new")
	}
}

func TestUser_Key(t *testing.T) {
	t.Parallel()

	u := &User{Name: "Jared"}
	if u.Key() != "JARED" {
		t.Errorf("Key() = %q, want JARED", u.Key())
	}
}

func TestParseSortField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    SortField
		wantErr bool
	}{
		{"", SortNone, false},
		{"NAME", SortName, false},
		{"name", SortName, false},
		{"Salary", SortSalary, false},
		{"SALARY", SortSalary, false},
		{"none", SortNone, false},
		{"NONE", SortNone, false},
		{"age", SortNone, true},
		{" NAME", SortNone, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSortField(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortField(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSortField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortField_Column(t *testing.T) {
	t.Parallel()

	if SortName.Column() != "name" {
		t.Errorf("SortName.Column() = %q", SortName.Column())
	}
	if SortSalary.Column() != "salary" {
		t.Errorf("SortSalary.Column() = %q", SortSalary.Column())
	}
	if SortNone.Column() != "id" {
		t.Errorf("SortNone.Column() = %q", SortNone.Column())
	}
}
