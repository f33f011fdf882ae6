package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MartinDM/data-app/internal/domain"
)

// Validator checks generated records before they leave the generator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with the struct rules declared on the
// domain types.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate runs the struct tag rules and the nested-record checks.
func (v *Validator) Validate(p domain.Person) error {
	if err := v.validate.Struct(p); err != nil {
		return err
	}

	if li := p.LocationInsights; li != nil {
		if err := checkOpenIntervals("residenceHistory", len(li.ResidenceHistory), func(i int) (time.Time, *time.Time) {
			r := li.ResidenceHistory[i]
			return r.StartDate, r.EndDate
		}); err != nil {
			return err
		}
		if err := checkOpenIntervals("workLocations", len(li.WorkLocations), func(i int) (time.Time, *time.Time) {
			w := li.WorkLocations[i]
			return w.StartDate, w.EndDate
		}); err != nil {
			return err
		}
	}

	if ti := p.TransactionInsights; ti != nil {
		for _, category := range domain.MerchantCategories {
			if _, ok := ti.SpendingPatterns.CategoryBreakdown[category]; !ok {
				return fmt.Errorf("categoryBreakdown missing %q", category)
			}
		}
		if ti.SpendingPatterns.TransactionCount != len(ti.RecentTransactions) {
			return errors.New("transactionCount does not match transaction list")
		}
	}
	return nil
}

// checkOpenIntervals enforces that only index 0 is open-ended and that every
// closed interval ends at or after its start.
func checkOpenIntervals(name string, n int, at func(int) (time.Time, *time.Time)) error {
	for i := 0; i < n; i++ {
		start, end := at(i)
		if i == 0 {
			if end != nil {
				return fmt.Errorf("%s[0] must be open-ended", name)
			}
			continue
		}
		if end == nil {
			return fmt.Errorf("%s[%d] must have an end date", name, i)
		}
		if end.Before(start) {
			return fmt.Errorf("%s[%d] ends before it starts", name, i)
		}
	}
	return nil
}
