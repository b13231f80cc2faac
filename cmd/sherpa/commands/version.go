package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput != "table" {
			return printResult(build.Get(), "", nil, nil)
		}
		fmt.Println(build.String())
		if IsVerbose() {
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  config: %s\n", cfg.Dir)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
