// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/xlsx2pdf/internal/redact"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [pdfs...]",
	Short: "Check PDFs for leftover watermark text",
	Long: `Verify reads the text layer of each PDF and counts occurrences of the
watermark keyword, ignoring whitespace. It exits non-zero when any file
still contains the keyword or cannot be read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"keyword": keyKeyword}); err != nil {
		return err
	}
	keyword := loadConfig(viper.GetViper()).Redaction.Keyword

	var dirty, failed int
	for _, path := range args {
		n, err := redact.CountResidual(path, keyword)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stdout, "failed:   %s (%v)\n", path, err)
			failed++
		case n > 0:
			fmt.Fprintf(os.Stdout, "residual: %s (%d occurrence(s))\n", path, n)
			dirty++
		default:
			fmt.Fprintf(os.Stdout, "clean:    %s\n", path)
		}
	}

	if dirty > 0 || failed > 0 {
		return fmt.Errorf("%d file(s) with residual text, %d unreadable", dirty, failed)
	}
	return nil
}

func init() {
	verifyCmd.Flags().String("keyword", redact.DefaultKeyword, "watermark text to look for (whitespace ignored)")

	rootCmd.AddCommand(verifyCmd)
}
