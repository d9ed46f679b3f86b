package derive

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Ventilate splits an amount between lender and host.
// For mixed allocations the lender share is rounded to the cent and the host
// takes the remainder, so the shares always sum to the amount.
// The ratio is ignored for lender and host allocations.
func Ventilate(amount decimal.Decimal, allocation entity.Allocation, ratio decimal.Decimal) (lender, host decimal.Decimal, err error) {
	if amount.IsNegative() {
		return decimal.Zero, decimal.Zero, apperror.Validation("ventilate", "amount must not be negative")
	}

	switch allocation {
	case entity.AllocationLender:
		return amount, decimal.Zero, nil
	case entity.AllocationHost:
		return decimal.Zero, amount, nil
	case entity.AllocationMixed:
		if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Zero, decimal.Zero, apperror.Validation("ventilate", "ratio %s must be within [0,1]", ratio)
		}
		lender = amount.Mul(ratio).Round(2)
		return lender, amount.Sub(lender), nil
	}

	return decimal.Zero, decimal.Zero, apperror.Validation("ventilate", "unknown allocation %q", allocation)
}

// EffectiveRatio returns the lender ratio implied by the allocation
func EffectiveRatio(allocation entity.Allocation, ratio decimal.Decimal) decimal.Decimal {
	switch allocation {
	case entity.AllocationLender:
		return decimal.NewFromInt(1)
	case entity.AllocationHost:
		return decimal.Zero
	}
	return ratio
}
