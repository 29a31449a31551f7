package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crtlab/n145/pkg/core"
	"github.com/crtlab/n145/pkg/reader/mzxml"
	"github.com/crtlab/n145/pkg/writer/sqlite"
	"github.com/crtlab/n145/pkg/writer/xlsx"
)

// writeResults saves the tables to an Excel workbook and, with --db, to SQLite
func writeResults(cmd *cobra.Command, path string, index bool, tables ...*core.Table) error {
	w := &xlsx.Writer{Index: index}
	if err := w.Write(path, tables...); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Output: %s\n", path)

	return storeTables(cmd, tables...)
}

// storeTables writes the tables to the --db database
func storeTables(cmd *cobra.Command, tables ...*core.Table) error {
	if cfg.DB == "" {
		return nil
	}

	w, err := sqlite.NewWriter(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer w.Close()

	for _, t := range tables {
		if err := w.WriteTable(t); err != nil {
			return err
		}
	}

	if err := w.Finalize(cmd.Name(), runDescription()); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	fmt.Printf("Database: %s\n", cfg.DB)
	return nil
}

func runDescription() string {
	return strings.Join(os.Args[1:], " ")
}

// readMS1 loads the MS1 scans of an mzXML file
func readMS1(path string) ([]*core.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mzXML file: %w", err)
	}
	defer f.Close()

	spectra, err := mzxml.ReadMS1(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	logger.Info("read MS1 scans", zap.String("file", path), zap.Int("scans", len(spectra)))
	return spectra, nil
}

// sheetTitle derives a sheet name from a file name
func sheetTitle(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
