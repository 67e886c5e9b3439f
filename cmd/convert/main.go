// Package main provides the command-line JSON-to-CSV converter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/FeedConvert/internal/converter"
	"github.com/JonMunkholm/FeedConvert/internal/logging"
)

// maxPrintedErrors caps the error lines shown in the run summary.
const maxPrintedErrors = 10

var (
	inputPattern    string
	outputPath      string
	workers         int
	batchSize       int
	allowDuplicates bool
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert product JSON files to a standardized CSV",
	Long: `Reads product JSON files (single products, search results, or bare
product arrays), standardizes each record into the fixed import schema, and
writes one Excel-compatible CSV.`,
	RunE: runConvert,
}

func init() {
	rootCmd.Flags().StringVarP(&inputPattern, "input", "i", "data/*.json", "Glob pattern for input JSON files")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "output.csv", "Output CSV file path")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", converter.DefaultWorkers, "Number of concurrent file workers")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", converter.DefaultBatchSize, "Rows buffered before each CSV flush")
	rootCmd.Flags().BoolVarP(&allowDuplicates, "allow-duplicates", "d", false, "Keep duplicate records instead of skipping them")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runConvert(cmd *cobra.Command, _ []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logging.Setup(level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	conv := converter.New(converter.Options{
		Workers:         workers,
		BatchSize:       batchSize,
		AllowDuplicates: allowDuplicates,
		Progress: func(done, total int, message string) {
			fmt.Printf("[%d/%d] %s\n", done, total, message)
		},
	})

	stats, runErr := conv.Run(ctx, converter.Input{Pattern: inputPattern}, converter.NewCSVSink(out))
	if closeErr := out.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		os.Remove(outputPath)
		return runErr
	}

	printSummary(stats)
	return nil
}

// printSummary prints the run statistics, capping the error list at
// maxPrintedErrors lines.
func printSummary(stats converter.Stats) {
	fmt.Println()
	fmt.Println("Conversion summary")
	fmt.Printf("  Files processed:    %d\n", stats.FilesProcessed)
	fmt.Printf("  Files with errors:  %d\n", stats.FilesWithErrors)
	fmt.Printf("  Records processed:  %d\n", stats.RecordsProcessed)
	fmt.Printf("  Duplicates skipped: %d\n", stats.DuplicatesSkipped)
	fmt.Printf("  Elapsed:            %.2fs\n", stats.Elapsed.Seconds())

	if len(stats.Errors) == 0 {
		return
	}

	fmt.Println("\nErrors:")
	for i, msg := range stats.Errors {
		if i == maxPrintedErrors {
			fmt.Printf("  ...and %d more errors\n", len(stats.Errors)-maxPrintedErrors)
			break
		}
		fmt.Printf("  - %s\n", msg)
	}
}
