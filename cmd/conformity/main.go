package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/briandowns/spinner"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"conformity/internal/logging"
	"conformity/internal/runner"
)

func main() {
	var fleetPath string
	var requiredTags string
	var outputFormat string
	var concurrencyLimit int
	var logLevel string
	var accessKey string
	var secretKey string
	var sessionToken string

	rootCmd := &cobra.Command{
		Use:   "conformity",
		Short: "Check that the EC2 instances of your autoscaling groups carry the required tags",
		Run: func(cmd *cobra.Command, args []string) {
			logger := logging.New(logLevel)

			// Fall back to an interactive prompt when no fleet file is given.
			if fleetPath == "" {
				value, err := promptInput("Enter path to the fleet definition file")
				if err != nil {
					logger.Fatal().Err(err).Msg("no fleet definition provided")
				}
				fleetPath = value
			}

			config := runner.Config{
				FleetPath:        fleetPath,
				RequiredTags:     parseCommaList(requiredTags),
				OutputFormat:     outputFormat,
				ConcurrencyLimit: concurrencyLimit,
			}

			// Explicit credentials beat the ambient provider chain.
			if accessKey != "" && secretKey != "" {
				config.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
			}

			service := runner.NewDefaultService(config, logger)

			// The spinner goes to stderr so table and JSON output stay clean.
			sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = " Checking fleet conformity ..."
			sp.Start()

			anyNonconforming, anyError, err := service.Run(context.Background())
			sp.Stop()

			if err != nil {
				logger.Fatal().Err(err).Msg("conformity run aborted")
			}

			// Set exit code based on the outcome
			if anyNonconforming {
				os.Exit(2) // Non-zero exit code indicates non-conforming instances
			}
			if anyError {
				os.Exit(1) // Error occurred during execution
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringVar(&fleetPath, "fleet", "", "Path to the HCL fleet definition file")
	rootCmd.Flags().StringVar(&requiredTags, "required-tags", "", "Comma-separated tag keys every instance must carry (overrides the fleet file)")
	rootCmd.Flags().StringVar(&outputFormat, "output", "table", "Output format: table or json")
	rootCmd.Flags().IntVar(&concurrencyLimit, "concurrency", runtime.NumCPU(), "Maximum number of clusters to check concurrently (default: number of CPU cores)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	rootCmd.Flags().StringVar(&accessKey, "access-key", "", "AWS access key ID (defaults to the ambient credential chain)")
	rootCmd.Flags().StringVar(&secretKey, "secret-key", "", "AWS secret access key")
	rootCmd.Flags().StringVar(&sessionToken, "session-token", "", "AWS session token for temporary credentials")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// promptInput shows an interactive prompt on the CLI
func promptInput(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt error: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// parseCommaList splits a comma-separated flag value into trimmed entries.
func parseCommaList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
