package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blip/internal/profile"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List built-in GATT profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	for _, name := range profile.BuiltinNames() {
		prof, _ := profile.Builtin(name)
		chars := 0
		for _, svc := range prof.Services {
			chars += len(svc.Characteristics)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d service(s), %d characteristic(s)\n",
			name, len(prof.Services), chars)
	}
	return nil
}

// loadProfile resolves the profile source: an explicit YAML file argument
// wins, otherwise the named built-in is used.
func loadProfile(args []string, builtinName string) (*profile.Profile, error) {
	if len(args) == 1 {
		return profile.Load(args[0])
	}
	prof, ok := profile.Builtin(builtinName)
	if !ok {
		return nil, fmt.Errorf("unknown built-in profile %q (available: %s)",
			builtinName, strings.Join(profile.BuiltinNames(), ", "))
	}
	return prof, nil
}
