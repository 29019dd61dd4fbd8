// cmd/bankctl/finance.go
package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bank-assistant/internal/finance"
)

var irrIterations int

var interestCmd = &cobra.Command{
	Use:   "interest [principal] [rate] [periods]",
	Short: "Future value under compound interest",
	Long: `Computes principal * (1 + rate)^periods.
The rate is per period as a decimal (5% = 0.05) and must be greater than -1.
A negative principal models a debt. Fractional periods are allowed.`,
	Example: `  bankctl interest 1000 0.05 5
  bankctl interest 1000 -0.02 3
  bankctl interest -- -1000 0.05 5`,
	Args:    cobra.ExactArgs(3),
	RunE:    runInterest,
}

var annuityCmd = &cobra.Command{
	Use:     "annuity [principal] [rate] [periods]",
	Short:   "Periodic payment that amortizes a loan",
	Example: "  bankctl annuity 10000 0.05 12",
	Args:    cobra.ExactArgs(3),
	RunE:    runAnnuity,
}

var irrCmd = &cobra.Command{
	Use:     "irr [cash flows...]",
	Short:   "Internal rate of return of a series of cash flows",
	Long:    `The first cash flow is period zero. At least one flow must be negative and one positive.`,
	Example: "  bankctl irr -- -1000 300 300 300 300 300",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runIRR,
}

func init() {
	// Arguments after the principal may be negative numbers.
	interestCmd.Flags().SetInterspersed(false)
	annuityCmd.Flags().SetInterspersed(false)

	irrCmd.Flags().IntVar(&irrIterations, "iterations", finance.DefaultIRRIterations, "maximum Newton-Raphson iterations")
	rootCmd.AddCommand(interestCmd, annuityCmd, irrCmd)
}

func runInterest(cmd *cobra.Command, args []string) error {
	principal, rate, periods, err := parseLoanArgs(args)
	if err != nil {
		return err
	}

	value, err := finance.CompoundInterest(principal, rate, periods)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value.StringFixed(2))
	return nil
}

func runAnnuity(cmd *cobra.Command, args []string) error {
	principal, rate, periods, err := parseLoanArgs(args)
	if err != nil {
		return err
	}

	payment, err := finance.AnnuityPayment(principal, rate, periods)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), payment.StringFixed(2))
	return nil
}

func runIRR(cmd *cobra.Command, args []string) error {
	flows := make([]float64, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("cash flow %q is not a number", a)
		}
		flows = append(flows, f)
	}

	irr, err := finance.InternalRateOfReturn(flows, irrIterations)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", irr)
	return nil
}

func parseLoanArgs(args []string) (principal, rate, periods decimal.Decimal, err error) {
	names := []string{"principal", "rate", "periods"}
	values := make([]decimal.Decimal, len(args))
	for i, a := range args {
		values[i], err = decimal.NewFromString(a)
		if err != nil {
			return principal, rate, periods, fmt.Errorf("%s %q is not a number", names[i], a)
		}
	}
	return values[0], values[1], values[2], nil
}
