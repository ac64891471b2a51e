package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/saftools/mapping"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage mapping profiles",
	Long:  `List and inspect the column profiles used to read mapping CSVs.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := mapping.NewProfileRegistry()
		if err != nil {
			return err
		}

		profiles := registry.List()
		if len(profiles) == 0 {
			fmt.Println("No profiles found")
			return nil
		}

		fmt.Println("Available profiles:")
		for _, name := range profiles {
			profile, _ := registry.Get(name)
			desc := ""
			if profile.Description != "" {
				desc = " - " + profile.Description
			}
			fmt.Printf("  %s%s\n", name, desc)
		}

		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile(args[0])
		if err != nil {
			return err
		}

		// Print as YAML
		out, err := yaml.Marshal(profile)
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

var profilesColumnsCmd = &cobra.Command{
	Use:   "columns [profile]",
	Short: "List the header names a profile looks for",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Columns in %s profile:\n\n", profile.Name)
		fmt.Printf("%-15s %s\n", "Field", "Headers")
		fmt.Printf("%-15s %s\n", "-----", "-------")

		fields := []struct {
			name    string
			headers []string
		}{
			{"serial_id", profile.Columns.SerialID},
			{"doi", profile.Columns.DOI},
			{"title", profile.Columns.Title},
			{"journal_title", profile.Columns.JournalTitle},
		}
		for _, f := range fields {
			if len(f.headers) == 0 {
				continue
			}
			fmt.Printf("%-15s %s\n", f.name, strings.Join(f.headers, ", "))
		}

		return nil
	},
}

func resolveProfile(name string) (*mapping.Profile, error) {
	registry, err := mapping.NewProfileRegistry()
	if err != nil {
		return nil, err
	}
	return registry.Resolve(name)
}

func init() {
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesColumnsCmd)
}
