package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/pkg/cache"
	"github.com/haivivi/sherpa/pkg/cli"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the result cache",
	Long: `Inspect or clear the result cache used by --cache.

The cache location comes from the context's cache.yaml (dir) and defaults
to ~/.sherpa/cli/cache.

Examples:
  sherpa cache list
  sherpa cache list zipvoice
  sherpa cache clear separation`,
}

// cachePrefix maps an optional kind argument to a key prefix.
func cachePrefix(args []string) (cache.Key, error) {
	if len(args) == 0 {
		return nil, nil
	}
	switch args[0] {
	case cache.SeparationPrefix, cache.ZipVoicePrefix:
		return cache.Key{args[0]}, nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q (want %s or %s)", args[0], cache.SeparationPrefix, cache.ZipVoicePrefix)
	}
}

var cacheListCmd = &cobra.Command{
	Use:       "list [separation|zipvoice]",
	Aliases:   []string{"ls"},
	Short:     "List cached results",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{cache.SeparationPrefix, cache.ZipVoicePrefix},
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, err := cachePrefix(args)
		if err != nil {
			return err
		}
		store, err := openCache(true)
		if err != nil {
			return err
		}
		defer store.Close()

		type entry struct {
			Key  string `yaml:"key" json:"key"`
			Size int64  `yaml:"size" json:"size"`
		}
		var (
			entries []entry
			rows    [][]string
			total   int64
		)
		for e, err := range store.List(context.Background(), prefix) {
			if err != nil {
				return err
			}
			size := int64(len(e.Value))
			total += size
			entries = append(entries, entry{Key: e.Key.String(), Size: size})
			rows = append(rows, []string{e.Key.String(), cli.FormatBytes(size)})
		}
		title := fmt.Sprintf("%d entries, %s", len(entries), cli.FormatBytes(total))
		return printResult(entries, title, []string{"Key", "Size"}, rows)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:       "clear [separation|zipvoice]",
	Short:     "Delete cached results",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{cache.SeparationPrefix, cache.ZipVoicePrefix},
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, err := cachePrefix(args)
		if err != nil {
			return err
		}
		store, err := openCache(true)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var keys []cache.Key
		for e, err := range store.List(ctx, prefix) {
			if err != nil {
				return err
			}
			keys = append(keys, e.Key)
		}
		for _, k := range keys {
			if err := store.Delete(ctx, k); err != nil {
				return err
			}
		}
		cli.PrintSuccess("Deleted %d cached results.", len(keys))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
