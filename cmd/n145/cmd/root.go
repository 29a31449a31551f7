// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crtlab/n145/internal/config"
	"github.com/crtlab/n145/internal/logging"
)

var (
	// Global settings, resolved before every command
	cfgFile string
	cfg     config.Config
	logger  = zap.NewNop()

	// Flags for hits command
	hitsInput     string
	hitsN14Sheet  string
	hitsN15Sheet  string
	hitsOutput    string
	hitsRaw       bool
	validatedOnly bool

	// Flags for match command
	matchOutput string
	matchSheet  string

	// Flags for intensity command
	intensityHits   string
	intensityMzXML  string
	intensityOutput string

	// Flags for ratio command
	ratioTandem string
	ratioMzXML  string
	ratioMods   string
	ratioOutput string

	// Flags for mass command
	massMods string

	// Flags for quant command
	experimentFile string
	quantOutput    string
	quantPlot      string
)

var rootCmd = &cobra.Command{
	Use:   "n145",
	Short: "n145 - 14N/15N peptide analysis tool",
	Long: `n145 pairs peptides identified in 14N and 15N labelled samples and
quantifies them from mass spectrometry data.

- Find peptides present in both the 14N and the 15N sample
- Measure 14N/15N peak intensities and ratios in MS1 scans
- Compute isotope masses of (modified) peptides
- Catalogue modifications per residue position and plot them

Settings are read from n145.yaml (or --config), N145_* environment
variables and command line flags.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		if logger, err = logging.New(cfg.Log.Level, cfg.Log.Format); err != nil {
			return err
		}
		logger.Debug("configuration loaded", zap.Any("config", cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command, cancelling long running work with ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(hitsCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(intensityCmd)
	rootCmd.AddCommand(ratioCmd)
	rootCmd.AddCommand(massCmd)
	rootCmd.AddCommand(quantCmd)
	rootCmd.AddCommand(summarizeCmd)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./n145.yaml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Float64("tolerance", 0.01, "Peak search tolerance in Da (divided by the charge)")
	pf.Float64("min-mz", 500, "Minimum 14N and 15N m/z of a peptide")
	pf.Int("threads", 0, "Number of worker threads (0 = one per CPU)")
	pf.String("db", "", "Also store result tables in this SQLite database")
	bindFlag("log.level", pf.Lookup("log-level"))
	bindFlag("tolerance", pf.Lookup("tolerance"))
	bindFlag("min-mz", pf.Lookup("min-mz"))
	bindFlag("threads", pf.Lookup("threads"))
	bindFlag("db", pf.Lookup("db"))

	// Hits command flags
	hitsCmd.Flags().StringVarP(&hitsInput, "in", "i", "", "Peptide list workbook (required)")
	hitsCmd.Flags().StringVar(&hitsN14Sheet, "n14", "", "Sheet of the 14N sample (required)")
	hitsCmd.Flags().StringVar(&hitsN15Sheet, "n15", "", "Sheet of the 15N sample (required)")
	hitsCmd.Flags().StringVarP(&hitsOutput, "out", "o", "", "Output workbook (required)")
	hitsCmd.Flags().BoolVar(&hitsRaw, "raw", false, "Keep all columns of the 14N sheet")
	hitsCmd.Flags().BoolVar(&validatedOnly, "validated-only", false, "Use only validated peptides (V = Y)")
	hitsCmd.MarkFlagRequired("in")
	hitsCmd.MarkFlagRequired("n14")
	hitsCmd.MarkFlagRequired("n15")
	hitsCmd.MarkFlagRequired("out")

	// Match command flags
	matchCmd.Flags().StringVarP(&matchOutput, "out", "o", "", "Output workbook (required)")
	matchCmd.Flags().StringVar(&matchSheet, "sheet", "List", "Sheet holding the hits in every input")
	matchCmd.MarkFlagRequired("out")

	// Intensity command flags
	intensityCmd.Flags().StringVar(&intensityHits, "hits", "", "Hit list workbook (required)")
	intensityCmd.Flags().StringVar(&intensityMzXML, "mzxml", "", "mzXML run file (required)")
	intensityCmd.Flags().StringVarP(&intensityOutput, "out", "o", "", "Output workbook (required)")
	intensityCmd.MarkFlagRequired("hits")
	intensityCmd.MarkFlagRequired("mzxml")
	intensityCmd.MarkFlagRequired("out")

	// Ratio command flags
	ratioCmd.Flags().StringVar(&ratioTandem, "tandem", "", "X!Tandem result file (required)")
	ratioCmd.Flags().StringVar(&ratioMzXML, "mzxml", "", "mzXML run file (required)")
	ratioCmd.Flags().StringVar(&ratioMods, "mods", "", "Modification CSV (Prefix,Residue,Composition,Mass)")
	ratioCmd.Flags().StringVarP(&ratioOutput, "out", "o", "", "Output workbook (required)")
	ratioCmd.Flags().Float64("fdr", 0.05, "Target-decoy FDR threshold")
	ratioCmd.Flags().String("decoy-prefix", "DECOY_", "Protein label prefix of decoys")
	bindFlag("fdr", ratioCmd.Flags().Lookup("fdr"))
	bindFlag("decoy-prefix", ratioCmd.Flags().Lookup("decoy-prefix"))
	ratioCmd.MarkFlagRequired("tandem")
	ratioCmd.MarkFlagRequired("mzxml")
	ratioCmd.MarkFlagRequired("out")

	// Mass command flags
	massCmd.Flags().StringVar(&massMods, "mods", "", "Modification CSV (Prefix,Residue,Composition,Mass)")

	// Quant command flags
	quantCmd.Flags().StringVarP(&experimentFile, "experiment", "e", "", "Experiment definition (required)")
	quantCmd.Flags().StringVarP(&quantOutput, "out", "o", "", "Output workbook of counts and percentages")
	quantCmd.Flags().StringVar(&quantPlot, "plot", "", "Bar chart file (png, svg, pdf)")
	quantCmd.MarkFlagRequired("experiment")
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
