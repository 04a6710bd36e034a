package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type importCmdConfig struct {
	*rootCmdConfig
	resolverConfig
}

func importCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "import EXPORT_FILE...",
		Short: "Import model exports into a store",
		Long:  `Import the JSON exports of models into a store from which ensembles can retrieve them by ID`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := applySettings(cmd, config.settingsInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			err = config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := context.Background()
			store, err := config.store(ctx, config.logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer store.Close(ctx)
			for _, path := range args {
				data, e, err := readExport(path)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
				if e.Resource == "" {
					fmt.Fprintf(os.Stderr, "%s holds no resource ID\n", path)
					os.Exit(3)
				}
				err = store.Store(ctx, e.Resource, data)
				if err != nil {
					fmt.Fprintf(os.Stderr, "storing %s: %v\n", e.Resource, err)
					os.Exit(4)
				}
				config.Logf("Imported %s from %s", e.Resource, path)
			}
		},
	}
	config.resolverConfig.addFlags(cmd)
	return cmd
}

func (icc *importCmdConfig) Validate() error {
	if err := icc.resolverConfig.Validate(); err != nil {
		return err
	}
	if icc.modelsDir == "" && icc.redisAddr == "" && icc.sqlitePath == "" && icc.postgresURL == "" && icc.mongoURL == "" {
		return fmt.Errorf("one of the models-dir, redis, sqlite, postgres and mongo flags is required")
	}
	return nil
}
