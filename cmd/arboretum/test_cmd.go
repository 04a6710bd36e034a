package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pbanos/arboretum"
	"github.com/spf13/cobra"
)

type testCmdConfig struct {
	*rootCmdConfig
	modelConfig
	predictOptionsConfig
	datasetConfig
	objective string
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the performance of a model or ensemble",
		Long:  `Test the performance of a model or ensemble against a test dataset whose records hold the objective field`,
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
			opts, err := config.options()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx := context.Background()
			predictor, err := config.loadPredictor(ctx, config.logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer config.modelConfig.Close(ctx)
			testingSet, err := config.dataset(ctx, config.logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			defer config.datasetConfig.Close()
			count, err := testingSet.Count(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "counting testing set records: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Testing against testset with %d records...", count)
			ev, err := arboretum.Evaluate(ctx, predictor, testingSet, config.objective, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "testing: %v\n", err)
				os.Exit(5)
			}
			config.Logf("Done")
			fmt.Println(ev)
		},
	}
	config.modelConfig.addFlags(cmd)
	config.predictOptionsConfig.addFlags(cmd)
	config.datasetConfig.addFlags(cmd, "testing dataset (required)")
	cmd.Flags().StringVarP(&(config.objective), "objective", "o", "", "name of the column of the testing dataset holding the objective field (required)")
	return cmd
}

func (tcc *testCmdConfig) Validate() error {
	if tcc.datasetInput == "" {
		return fmt.Errorf("required dataset flag was not set")
	}
	if tcc.objective == "" {
		return fmt.Errorf("required objective flag was not set")
	}
	return tcc.modelConfig.Validate()
}
