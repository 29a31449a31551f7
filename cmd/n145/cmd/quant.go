package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crtlab/n145/internal/config"
	"github.com/crtlab/n145/pkg/chart"
	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/quant"
)

var quantCmd = &cobra.Command{
	Use:   "quant",
	Short: "Count modifications per residue position across conditions",
	Long: `Count the modifications of validated peptides at the positions named in an
experiment file, as counts and as a percentage of the peptides covering each
position, and optionally draw one bar chart panel per condition.

Example:
  n145 quant --experiment cysteines.yaml --out cysteines.xlsx --plot cysteines.png`,
	RunE: runQuant,
}

func runQuant(cmd *cobra.Command, args []string) error {
	if quantOutput == "" && quantPlot == "" {
		return fmt.Errorf("nothing to do, pass --out and/or --plot")
	}

	exp, err := config.LoadExperiment(experimentFile)
	if err != nil {
		return err
	}

	results, err := quant.Quantify(exp.Conditions, exp.QuantOptions(), logger)
	if err != nil {
		return err
	}

	var tables []*core.Table
	for _, r := range results {
		fmt.Printf("%s: %d positions, %d labels\n", r.Title, len(r.Summary.Positions), len(r.Summary.Labels))
		tables = append(tables,
			r.Summary.CountTable(r.Title+" counts"),
			r.Summary.PercentageTable(r.Title+" percent"))
	}

	if quantOutput != "" {
		if err := writeResults(cmd, quantOutput, false, tables...); err != nil {
			return err
		}
	} else if err := storeTables(cmd, tables...); err != nil {
		return err
	}

	if quantPlot != "" {
		opts := chart.Options{
			MaxY:   exp.MaxY,
			Legend: exp.Labels,
			XLabel: "Position",
			YLabel: "Percentage (Count)",
		}
		if err := chart.BarChart(quantPlot, quant.Panels(results), opts); err != nil {
			return fmt.Errorf("failed to plot: %w", err)
		}
		fmt.Printf("Plot: %s\n", quantPlot)
	}

	return nil
}
