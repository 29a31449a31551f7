package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/match"
	"github.com/crtlab/n145/pkg/reader/sheet"
)

const (
	// hitsSheet is the sheet name of hit lists
	hitsSheet = "List"
	// Hit lists are read back by match and intensity, so Sequence stays the first column
	hitListIndex = false
)

var hitsCmd = &cobra.Command{
	Use:   "hits",
	Short: "Find peptides identified in both the 14N and the 15N sample",
	Long: `Join the 14N and 15N peptide lists of a workbook on sequence,
modifications and charge. Every (sequence, modifications) pair is listed once,
ordered by start position.

Examples:
  # Hit list with 14N and 15N m/z and masses
  n145 hits --in peptides.xlsx --n14 Mix_37_14N --n15 Mix_37_15N --out hits_37.xlsx

  # Keep every column of the 14N sheet, validated peptides only
  n145 hits --in peptides.xlsx --n14 Mix_37_14N --n15 Mix_37_15N --out hits_37.xlsx --raw --validated-only`,
	RunE: runHits,
}

func runHits(cmd *cobra.Command, args []string) error {
	n14, err := sheet.ReadPeptideList(hitsInput, hitsN14Sheet, validatedOnly)
	if err != nil {
		return fmt.Errorf("failed to read 14N peptides: %w", err)
	}
	n15, err := sheet.ReadPeptideList(hitsInput, hitsN15Sheet, validatedOnly)
	if err != nil {
		return fmt.Errorf("failed to read 15N peptides: %w", err)
	}
	logger.Info("read peptide lists",
		zap.Int("n14", len(n14.Peptides)), zap.Int("n15", len(n15.Peptides)), zap.Bool("validated_only", validatedOnly))

	var table *core.Table
	if hitsRaw {
		table = match.FindHitsRaw(hitsSheet, n14, n15)
	} else {
		table = core.HitTable(hitsSheet, match.FindHits(n14.Peptides, n15.Peptides))
	}

	fmt.Printf("Found %d hits\n", table.Len())
	return writeResults(cmd, hitsOutput, hitListIndex, table)
}
