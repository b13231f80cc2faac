package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/pkg/sherpa"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List ONNX Runtime execution providers",
	Long: `List the execution providers this platform can use and the one chosen
when none is configured. The default honours $SHERPA_ONNX_PROVIDER.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		def := sherpa.DefaultProvider()
		type providerInfo struct {
			Default   string   `yaml:"default" json:"default"`
			Available []string `yaml:"available" json:"available"`
			Native    bool     `yaml:"native" json:"native"`
		}
		info := providerInfo{Default: def, Available: sherpa.AvailableProviders(), Native: sherpa.NativeAvailable()}

		rows := make([][]string, 0, len(info.Available))
		for _, p := range info.Available {
			mark := ""
			if p == def {
				mark = "*"
			}
			rows = append(rows, []string{mark, p})
		}
		return printResult(info, "Execution providers", []string{"Default", "Provider"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
