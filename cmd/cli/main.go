package main

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "cropyield/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Ignore a missing .env; the environment may already be configured.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "cropyield",
		Short:         "Train, compare and query crop-yield regression models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newGenerateCmd(),
		newTrainCmd(),
		newPredictCmd(),
		newKnownValuesCmd(),
		newReportCmd(),
		newProfileCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError writes the structured error to stderr.
func printError(err error) {
	out, mErr := json.MarshalIndent(map[string]apperrors.Detail{"error": apperrors.Describe(err)}, "", "  ")
	if mErr != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, string(out))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
