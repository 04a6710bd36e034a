package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pbanos/arboretum"
	"github.com/spf13/cobra"
)

type importanceCmdConfig struct {
	*rootCmdConfig
	modelConfig
}

func importanceCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importanceCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Show the importance of the fields of a model or ensemble",
		Long:  `Show the importance of the fields of a model or ensemble in its predictions, from most to least important`,
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
			predictor, err := config.loadPredictor(ctx, config.logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer config.modelConfig.Close(ctx)
			var importance []arboretum.Importance
			switch p := predictor.(type) {
			case *arboretum.Model:
				importance = p.FieldImportance()
			case *arboretum.Ensemble:
				importance, err = p.FieldImportance(ctx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "computing field importance: %v\n", err)
					os.Exit(3)
				}
			}
			fields := catalog(predictor)
			for _, i := range importance {
				name := i.FieldID
				if f := fields.Field(i.FieldID); f != nil {
					name = f.Name
				}
				fmt.Printf("%s: %.2f%%\n", name, i.Value*100)
			}
		},
	}
	config.modelConfig.addFlags(cmd)
	return cmd
}
