// Command tilebench drives a headless continuous-scroll benchmark against
// the tile rendering pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagFile     string
	flagDuration time.Duration
	flagOutput   string
	flagZoom     uint32
	flagPages    int
)

var rootCmd = &cobra.Command{
	Use:   "tilebench",
	Short: "Headless continuous-scroll benchmark for the tile pipeline",
	RunE:  runBench,
}

func init() {
	rootCmd.Flags().StringVar(&flagFile, "file", "", "PDF file to benchmark (unsupported in this build; omit to use the synthetic document)")
	rootCmd.Flags().DurationVar(&flagDuration, "duration", 10*time.Second, "how long to run the scroll benchmark")
	rootCmd.Flags().StringVar(&flagOutput, "output", "", "path to write the JSON report (default: stdout)")
	rootCmd.Flags().Uint32Var(&flagZoom, "zoom", 100, "zoom percentage to benchmark at")
	rootCmd.Flags().IntVar(&flagPages, "pages", 50, "page count for the synthetic document (ignored with --file)")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := BenchConfig{
		Duration:    flagDuration,
		ZoomPercent: flagZoom,
	}

	if flagFile != "" {
		return fmt.Errorf("tilebench: --file requires a real PDFEngine wired in by the host application; this build only ships the synthetic document")
	}

	engine := fakeEngine{pageCount: flagPages}
	doc, err := engine.FromBytes(context.Background(), nil)
	if err != nil {
		return err
	}
	cfg.Document = doc

	report, err := Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("tilebench: marshal report: %w", err)
	}

	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, data, 0o644); err != nil {
			return fmt.Errorf("tilebench: write report: %w", err)
		}
	} else {
		fmt.Println(string(data))
	}

	if !report.Pass {
		os.Exit(2)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
