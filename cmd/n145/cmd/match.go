package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/match"
	"github.com/crtlab/n145/pkg/reader/sheet"
)

var matchCmd = &cobra.Command{
	Use:   "match [hit lists...]",
	Short: "Find hits shared by every condition",
	Long: `Keep the hits of the first list that appear in every other list with the
same sequence, modifications and start position.

Example:
  n145 match --out matching.xlsx hits_37.xlsx hits_42.xlsx hits_42_Zn.xlsx`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	lists := make([][]core.Hit, len(args))
	for i, path := range args {
		hits, err := sheet.ReadHitList(path, matchSheet)
		if err != nil {
			return fmt.Errorf("failed to read hits: %w", err)
		}
		fmt.Printf("%s: %d hits\n", path, len(hits))
		lists[i] = hits
	}

	matched, err := match.MatchConditions(lists...)
	if err != nil {
		return err
	}

	fmt.Printf("Matched %d hits across %d conditions\n", len(matched), len(args))
	return writeResults(cmd, matchOutput, hitListIndex, core.HitTable(hitsSheet, matched))
}
