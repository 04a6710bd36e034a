package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logger
	settingsInput string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arboretum",
		Short: "arboretum makes predictions with exported decision trees",
		Long:  `A tool to make predictions offline with exported decision tree models and ensembles, evaluate them against datasets and inspect them`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP((*bool)(&config.logger), "verbose", "v", false, "log progress on STDERR")
	rootCmd.PersistentFlags().StringVarP(&(config.settingsInput), "config", "c", "", "path to a YAML file with default values for the flags of the commands")
	rootCmd.AddCommand(
		versionCmd(),
		predictCmd(config),
		testCmd(config),
		treeCmd(config),
		importanceCmd(config),
		importCmd(config),
	)
	return rootCmd
}
