package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/sherpa/cmd/sherpa/internal/config"
	"github.com/haivivi/sherpa/pkg/cli"
)

// validateServiceName checks that a service name is non-empty and safe for use as a filename.
func validateServiceName(service string) error {
	if service == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if strings.ContainsAny(service, "/\\") {
		return fmt.Errorf("service name %q must not contain path separators", service)
	}
	if strings.HasPrefix(service, ".") {
		return fmt.Errorf("service name %q must not start with '.'", service)
	}
	return nil
}

// contextDir validates ctxName and returns its existing directory.
func contextDir(cfg *config.Config, ctxName string) (string, error) {
	if err := config.ValidateContextName(ctxName); err != nil {
		return "", err
	}
	dir := cfg.ContextDir(ctxName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("context %q not found", ctxName)
	}
	return dir, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts and service configurations.

A context is a named directory holding per-service YAML config files:
separation.yaml, zipvoice.yaml, cache.yaml and storage.yaml. Keys may be
dotted to reach nested fields.

Examples:
  sherpa config list
  sherpa config add-context gpu
  sherpa config use-context gpu
  sherpa config set gpu zipvoice onnx.provider cuda
  sherpa config set gpu cache enabled true
  sherpa config set gpu storage s3.endpoint http://localhost:9000
  sherpa config show gpu zipvoice`,
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "list-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			cli.PrintInfo("No contexts configured.")
			cli.PrintInfo("Create one with: sherpa config add-context <name>")
			return nil
		}

		type contextInfo struct {
			Name     string   `yaml:"name" json:"name"`
			Current  bool     `yaml:"current" json:"current"`
			Services []string `yaml:"services" json:"services"`
		}
		infos := make([]contextInfo, 0, len(names))
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			services, _ := config.ListServices(cfg.ContextDir(name))
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			infos = append(infos, contextInfo{Name: name, Current: current != "", Services: services})
			rows = append(rows, []string{current, name, strings.Join(services, ", ")})
		}
		return printResult(infos, "", []string{"Current", "Name", "Services"}, rows)
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]

		if err := cfg.AddContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q created.", name)
		cli.PrintInfo("Configure services with: sherpa config set %s <service> <key> <value>", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context and all its service configs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted.", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q.", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			cli.PrintInfo("No current context set.")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <service> <key> <value>",
	Short: "Set a service config value",
	Long: `Set a key-value pair in a service's YAML config file. Dotted keys
address nested fields; values are parsed as YAML scalars.

Examples:
  sherpa config set cpu separation uvr.model /models/UVR_MDXNET_1_9703.onnx
  sherpa config set cpu separation num_threads 4
  sherpa config set cpu cache ttl 72h`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key, value := args[0], args[1], args[2], args[3]
		dir, err := contextDir(cfg, ctxName)
		if err != nil {
			return err
		}
		if err := validateServiceName(service); err != nil {
			return err
		}

		m := map[string]any{}
		if _, statErr := os.Stat(cfg.ServicePath(ctxName, service)); statErr == nil {
			existing, err := config.LoadService[map[string]any](dir, service)
			if err != nil {
				return fmt.Errorf("cannot read existing %s config: %w", service, err)
			}
			// Empty YAML files unmarshal to a nil map.
			if *existing != nil {
				m = *existing
			}
		}
		if err := config.SetValue(m, key, value); err != nil {
			return err
		}
		if err := config.SaveService(dir, service, &m); err != nil {
			return err
		}

		cli.PrintSuccess("Set %s.%s = %s (context: %s)", service, key, value, ctxName)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> <service> <key>",
	Short: "Get a service config value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key := args[0], args[1], args[2]
		dir, err := contextDir(cfg, ctxName)
		if err != nil {
			return err
		}
		if err := validateServiceName(service); err != nil {
			return err
		}

		m, err := config.LoadService[map[string]any](dir, service)
		if err != nil {
			return err
		}
		val, ok := config.GetValue(*m, key)
		if !ok {
			return fmt.Errorf("key %q not found in %s config", key, service)
		}
		fmt.Println(val)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show <context> <service>",
	Short: "Print a service config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service := args[0], args[1]
		dir, err := contextDir(cfg, ctxName)
		if err != nil {
			return err
		}
		if err := validateServiceName(service); err != nil {
			return err
		}

		m, err := config.LoadService[map[string]any](dir, service)
		if err != nil {
			return err
		}
		if *m == nil {
			*m = map[string]any{}
		}
		return printResult(*m, "", nil, nil)
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit <context> <service>",
	Short: "Open a service config in the default editor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service := args[0], args[1]
		if _, err := contextDir(cfg, ctxName); err != nil {
			return err
		}
		if err := validateServiceName(service); err != nil {
			return err
		}

		path := cfg.ServicePath(ctxName, service)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("# "+service+" configuration\n"), 0600); err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		c := exec.Command(editor, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}
