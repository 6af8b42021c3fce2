package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/existflow/stockdash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after the config file, .env and STOCKDASH_*
variables are applied. Change values with the global flags, for example:

  stockdash config --auth-url http://auth.internal:8004`,
	RunE: runConfig,
}

var configPathOnly bool

func init() {
	configCmd.Flags().BoolVar(&configPathOnly, "path", false, "Only print the config file location")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path, err := config.Path()
	if err != nil {
		return err
	}
	if configPathOnly {
		fmt.Fprintln(out, path)
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dimColor.Fprintf(out, "# %s\n", path)
	fmt.Fprint(out, string(data))
	for _, name := range cfg.Storage.Secrets() {
		dimColor.Fprintf(out, "# %s is set (hidden)\n", name)
	}
	return nil
}
