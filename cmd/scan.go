package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/originflow/sentinel/internal/database"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/internal/posture"
	"github.com/originflow/sentinel/internal/telemetry"
	"github.com/originflow/sentinel/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a one-shot security posture scan",
	Long: `Run every posture scanner once against the platform and print the
composite score, findings, and recommendations.

Example:
  sentinel scan
  sentinel scan --actor usr_42
`,
	RunE: runScan,
}

var scanActorID string

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanActorID, "actor", "", "Actor to attribute the scan to in the audit log")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Close()

	store, err := database.NewStore(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	audit := logger.NewAuditLogger(log, store)
	orch := posture.NewOrchestrator(store, audit, log, tel, cfg.Scanner)

	result, err := orch.Run(ctx, scanActorID)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printScanResult(result)
	return nil
}

func printScanResult(result *types.ScanResult) {
	bold := color.New(color.Bold)

	fmt.Println()
	bold.Println("Security Posture Scan")
	fmt.Printf("  Scan ID:  %s\n", result.ScanID)
	fmt.Printf("  Score:    %d/100\n", result.Score)
	fmt.Printf("  Status:   %s\n", colorStatus(result.Status))
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Println()

	if len(result.Findings) == 0 {
		color.Green("  No findings.")
	} else {
		bold.Printf("Findings (%d)\n", len(result.Findings))
		for _, f := range result.Findings {
			fmt.Printf("  [%s] %s: %s\n", colorSeverity(f.Severity), f.Type, f.Description)
		}
	}

	if len(result.Recommendations) > 0 {
		fmt.Println()
		bold.Println("Recommendations")
		for _, r := range result.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
	fmt.Println()
}

func colorStatus(status types.ScanStatus) string {
	switch status {
	case types.ScanStatusSecure:
		return color.GreenString(string(status))
	case types.ScanStatusWarning:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

func colorSeverity(severity types.Severity) string {
	switch severity {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(severity)
	case types.SeverityHigh:
		return color.RedString(string(severity))
	case types.SeverityMedium:
		return color.YellowString(string(severity))
	default:
		return color.CyanString(string(severity))
	}
}
