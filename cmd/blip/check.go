package main

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blip/pkg/config"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [profile-file]",
	Short: "Validate a GATT profile and print its attribute layout",
	Long: `Parses a profile, validates every UUID, flag set, and hex value, and
prints the attribute tree that serve would publish. Nothing touches the bus.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

var (
	checkProfileName string
	checkJSON        bool
	checkVerbose     bool
)

func init() {
	checkCmd.Flags().StringVar(&checkProfileName, "profile", "heart-rate", "Built-in profile name (ignored when a file is given)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the parsed profile as JSON")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Verbose output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if checkVerbose {
		cfg.LogLevel = logrus.DebugLevel
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	logger := cfg.NewLogger()

	prof, err := loadProfile(args, checkProfileName)
	if err != nil {
		return err
	}
	services, err := prof.Build()
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"profile":  prof.Name,
		"services": len(services),
	}).Debug("profile validated")

	if checkJSON {
		data, err := json.MarshalIndent(prof, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render profile: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printProfileTree(cmd.OutOrStdout(), services, stdoutIsTerminal())
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %q defines %d service(s)\n", prof.Name, len(services))
	return nil
}
