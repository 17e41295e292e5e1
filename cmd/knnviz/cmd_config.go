package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"knnviz/internal/config"
)

var configWrite string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after defaults, the config file and
command line flags have been applied. With --write it saves it instead, which
is a convenient starting point for a config file.

Examples:
  knnviz config
  knnviz config -k 5 --write ~/.config/knnviz/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().StringVar(&configWrite, "write", "", "save the configuration to this path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configWrite != "" {
		if err := config.Save(configWrite, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configWrite)
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
