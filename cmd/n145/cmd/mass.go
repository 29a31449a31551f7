package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crtlab/n145/pkg/core"
)

var massCmd = &cobra.Command{
	Use:   "mass [sequence charge]",
	Short: "Compute the 14N and 15N m/z of a peptide",
	Long: `Print the 14N and 15N m/z of a peptide at a charge. Modified residues are
written with their label, e.g. PEPcamCTIDE. Without arguments the command
prompts for sequences until answered with anything but y.

Examples:
  n145 mass PEPTIDE 2
  n145 mass`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected a sequence and a charge, got %d arguments", len(args))
		}
		return nil
	},
	RunE: runMass,
}

func runMass(cmd *cobra.Command, args []string) error {
	db, err := loadModDatabase(massMods)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		charge, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid charge %q: %w", args[1], err)
		}
		return printMass(out, db, args[0], charge)
	}

	return massPrompt(cmd.InOrStdin(), out, db)
}

// massPrompt reads sequence and charge pairs until the user stops
func massPrompt(in io.Reader, out io.Writer, db *core.ModDatabase) error {
	scanner := bufio.NewScanner(in)
	ask := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(out, "Welcome to the N14 and N15 mass calculator")
	for {
		seq, ok := ask("Enter sequence: ")
		if !ok {
			break
		}
		chargeText, ok := ask("Enter charge: ")
		if !ok {
			break
		}

		charge, err := strconv.Atoi(chargeText)
		if err != nil {
			fmt.Fprintf(out, "Invalid charge %q\n", chargeText)
		} else if err := printMass(out, db, seq, charge); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}

		again, ok := ask("Enter a new sequence (y/n): ")
		if !ok || strings.ToLower(again) != "y" {
			break
		}
	}
	fmt.Fprintln(out, "Bye bye")

	return scanner.Err()
}

func printMass(out io.Writer, db *core.ModDatabase, seq string, charge int) error {
	// plain sequences may be typed in lower case
	if strings.ToLower(seq) == seq {
		seq = strings.ToUpper(seq)
	}

	masses, err := core.CalculateIsotopeMasses(seq, charge, 0, db)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "For sequence %s (%d+) the N14 m/z is %.3f and N15 m/z is %.3f\n",
		seq, charge, masses.N14MZ, masses.N15MZ)
	return nil
}
