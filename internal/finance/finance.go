// internal/finance/finance.go
package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRate       = errors.New("INVALID_RATE")
	ErrInvalidPeriods    = errors.New("INVALID_PERIODS")
	ErrInvalidPrincipal  = errors.New("INVALID_PRINCIPAL")
	ErrInvalidCashFlows  = errors.New("INVALID_CASH_FLOWS")
	ErrInvalidIterations = errors.New("INVALID_ITERATIONS")
)

// powPrecision is the number of decimal places kept for fractional exponents.
const powPrecision = 16

// DefaultIRRIterations bounds the Newton-Raphson loop in InternalRateOfReturn.
const DefaultIRRIterations = 100

var one = decimal.NewFromInt(1)

// CompoundInterest returns the future value principal*(1+rate)^periods.
// A negative principal models a debt; a negative rate models depreciation.
// Fractional periods are allowed.
func CompoundInterest(principal, rate, periods decimal.Decimal) (decimal.Decimal, error) {
	if rate.LessThanOrEqual(one.Neg()) {
		return decimal.Zero, fmt.Errorf("%w: rate must be greater than -1, got %s", ErrInvalidRate, rate)
	}
	if periods.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: periods must be >= 0, got %s", ErrInvalidPeriods, periods)
	}

	growth, err := one.Add(rate).PowWithPrecision(periods, powPrecision)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	return principal.Mul(growth), nil
}

// AnnuityPayment returns the periodic payment that amortizes principal over periods at rate.
// A zero rate degrades to principal/periods.
func AnnuityPayment(principal, rate, periods decimal.Decimal) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: principal must be >= 0, got %s", ErrInvalidPrincipal, principal)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: rate must be >= 0, got %s", ErrInvalidRate, rate)
	}
	if !periods.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: periods must be > 0, got %s", ErrInvalidPeriods, periods)
	}

	if rate.IsZero() {
		return principal.Div(periods), nil
	}

	growth, err := one.Add(rate).PowWithPrecision(periods, powPrecision)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	return principal.Mul(rate.Mul(growth)).Div(growth.Sub(one)), nil
}

// InternalRateOfReturn finds the discount rate at which the net present value of
// cashFlows is zero, starting from a 10% guess. cashFlows[0] is period zero.
func InternalRateOfReturn(cashFlows []float64, iterations int) (float64, error) {
	if len(cashFlows) < 2 {
		return 0, fmt.Errorf("%w: at least 2 cash flows required, got %d", ErrInvalidCashFlows, len(cashFlows))
	}

	var hasNegative, hasPositive bool
	for _, cf := range cashFlows {
		if cf < 0 {
			hasNegative = true
		}
		if cf > 0 {
			hasPositive = true
		}
	}
	if !hasNegative || !hasPositive {
		return 0, fmt.Errorf("%w: need at least one negative and one positive flow", ErrInvalidCashFlows)
	}
	if iterations <= 0 {
		return 0, fmt.Errorf("%w: iterations must be > 0, got %d", ErrInvalidIterations, iterations)
	}

	guess := 0.1
	for i := 0; i < iterations; i++ {
		var npv, derivative float64
		for t, cf := range cashFlows {
			ft := float64(t)
			npv += cf / math.Pow(1+guess, ft)
			derivative += -ft * cf / math.Pow(1+guess, ft+1)
		}
		if derivative == 0 {
			break
		}
		next := guess - npv/derivative
		if math.Abs(next-guess) < 1e-12 {
			return next, nil
		}
		guess = next
	}
	return guess, nil
}
