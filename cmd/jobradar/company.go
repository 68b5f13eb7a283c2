package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velin/jobradar/internal/observability"
	"github.com/velin/jobradar/internal/store"
)

var companyFactors bool

var companyCmd = &cobra.Command{
	Use:   "company <name>",
	Short: "Show the latest workplace score for a company",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompany,
}

func init() {
	companyCmd.Flags().BoolVar(&companyFactors, "factors", false, "Include the per-factor breakdown")
	rootCmd.AddCommand(companyCmd)
}

func runCompany(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	company, err := a.store.GetCompanyByNormalizedName(ctx, store.NormalizeName(name))
	if err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("company %q not found", name)
	}

	score, err := a.store.GetLatestCompanyScore(ctx, company.ID)
	if err != nil {
		return err
	}
	if score == nil {
		return fmt.Errorf("company %q has not been scored yet", company.Name)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintCompanyScore(company.Name, score)
	if companyFactors {
		printer.PrintFactorBreakdown(score)
	}
	return nil
}
