package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type treeCmdConfig struct {
	*rootCmdConfig
	modelConfig
	impurity float64
}

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the tree of a model",
		Long:  `Show the tree of a model and, optionally, the rules leading to its impure leaves`,
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
			m, err := config.loadModel(context.Background(), config.logger)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			fmt.Println(m.Tree)
			if config.impurity <= 0 {
				return
			}
			leaves := m.Tree.ImpureLeaves(config.impurity)
			config.Logf("Found %d leaves with impurity over %f", len(leaves), config.impurity)
			for _, i := range leaves {
				n := m.Tree.Node(i)
				rules := make([]string, 0)
				for _, p := range m.Tree.Path(i) {
					rules = append(rules, p.Rule(m.Fields))
				}
				fmt.Printf("%v (impurity %.5f): %s\n", n.Output, n.GiniImpurity(), strings.Join(rules, " and "))
			}
		},
	}
	config.modelConfig.addFlags(cmd)
	cmd.Flags().Float64Var(&(config.impurity), "impurity", 0, "list the leaves with a gini impurity over this value")
	return cmd
}

func (tcc *treeCmdConfig) Validate() error {
	if tcc.impurity < 0 || tcc.impurity > 1 {
		return fmt.Errorf("impurity flag must be between 0 and 1")
	}
	return tcc.modelConfig.Validate()
}
