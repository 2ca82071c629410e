package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boifagusy/flashflow-sub000/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the FlashFlow version along with build details.

Examples:
  flashflow version                 # Full version information
  flashflow version --short         # Version number only
  flashflow version --format json   # Output as JSON`,
	RunE: runVersion,
}

var (
	versionShort  bool
	versionFormat string
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text|json)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()

	if versionShort {
		fmt.Println(info.Version)
		return nil
	}

	switch versionFormat {
	case "text":
		fmt.Printf("FlashFlow %s\n", info.Version)
		fmt.Printf("  Commit:     %s\n", info.GitCommit)
		fmt.Printf("  Built:      %s\n", info.BuildTime)
		fmt.Printf("  Go version: %s\n", info.GoVersion)
		fmt.Printf("  Platform:   %s\n", info.Platform)
		return nil
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", versionFormat)
	}
}
