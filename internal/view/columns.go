package view

import (
	"cmp"
	"strings"

	"github.com/MartinDM/data-app/internal/domain"
)

// Column names a table column of the people view.
type Column string

const (
	ColumnID            Column = "id"
	ColumnName          Column = "name"
	ColumnRisk          Column = "risk"
	ColumnLocation      Column = "location"
	ColumnSalary        Column = "salary"
	ColumnAccountNumber Column = "accountNumber"
	ColumnDOB           Column = "dob"
)

// Columns lists every column in display order.
var Columns = []Column{
	ColumnID,
	ColumnName,
	ColumnRisk,
	ColumnLocation,
	ColumnSalary,
	ColumnAccountNumber,
	ColumnDOB,
}

// ParseColumn resolves a column name.
func ParseColumn(name string) (Column, bool) {
	for _, c := range Columns {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Filterable reports whether the column accepts a filter.
func (c Column) Filterable() bool {
	switch c {
	case ColumnName, ColumnRisk, ColumnLocation, ColumnDOB:
		return true
	}
	return false
}

// Direction is the sort direction. The empty value means no sort.
type Direction string

const (
	DirectionNone Direction = ""
	Ascending     Direction = "asc"
	Descending    Direction = "desc"
)

// ParseDirection resolves a direction name.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(s)); d {
	case DirectionNone, Ascending, Descending:
		return d, true
	}
	return "", false
}

// Sort is the single active sort key.
type Sort struct {
	Column    Column    `json:"column,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Active reports whether a sort is applied.
func (s Sort) Active() bool {
	return s.Column != "" && s.Direction != DirectionNone
}

// compareBy returns the ascending comparator of a column.
func compareBy(c Column) func(a, b *domain.Person) int {
	switch c {
	case ColumnID:
		return func(a, b *domain.Person) int { return strings.Compare(a.ID, b.ID) }
	case ColumnName:
		return func(a, b *domain.Person) int { return strings.Compare(a.Name, b.Name) }
	case ColumnRisk:
		return func(a, b *domain.Person) int { return cmp.Compare(a.Risk, b.Risk) }
	case ColumnLocation:
		return func(a, b *domain.Person) int { return strings.Compare(a.Location.City, b.Location.City) }
	case ColumnSalary:
		return func(a, b *domain.Person) int { return cmp.Compare(a.Salary, b.Salary) }
	case ColumnAccountNumber:
		return func(a, b *domain.Person) int { return strings.Compare(a.AccountNumber, b.AccountNumber) }
	case ColumnDOB:
		// fixed-width ISO dates order lexically
		return func(a, b *domain.Person) int { return strings.Compare(a.DOB, b.DOB) }
	}
	return nil
}
