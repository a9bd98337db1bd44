// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/xlsx2pdf/internal/history"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past conversion runs",
	Long: `History lists recorded conversion runs, newest first. Use show to see
the per-workbook outcomes of one run and report to write its YAML report.`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the workbooks of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Write the YAML report of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryReport,
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	if err := bindFlags(cmd, map[string]string{"history-dir": keyHistoryDir}); err != nil {
		return nil, err
	}
	cfg := loadConfig(viper.GetViper()).History
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history is disabled (history.dir is empty)")
	}
	return history.NewStore(cfg)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %5s  %9s  %6s  %s\n",
		"Run", "Started", "Status", "Total", "Converted", "Failed", "Output")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %5d  %9d  %6d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.Summary.Total, r.Summary.Converted, r.Summary.Failed, r.OutputDir)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Run(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("Run %s: %s, %.2f seconds\n", run.ID, run.Status, run.Elapsed.Seconds())
	for _, it := range run.Items {
		switch it.Status {
		case types.ItemConverted:
			fmt.Printf("converted: %s -> %s\n", it.InputPath, it.OutputPath)
		case types.ItemFailed:
			fmt.Printf("failed:    %s (%s)\n", it.InputPath, it.Error)
		default:
			fmt.Printf("%-10s %s\n", string(it.Status)+":", it.InputPath)
		}
	}
	return nil
}

func runHistoryReport(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out, _ := cmd.Flags().GetString("out")
	path, err := store.WriteReport(context.Background(), args[0], out)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", ".xlsx2pdf", "directory holding history.db")
	historyCmd.Flags().Int("limit", 0, "maximum number of runs (default: history.max_results)")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyShowCmd.Flags().Bool("json", false, "output as JSON")
	historyReportCmd.Flags().String("out", "", "report path (default: <output dir>/"+history.ReportFile+")")

	historyCmd.AddCommand(historyShowCmd, historyReportCmd)
	rootCmd.AddCommand(historyCmd)
}
