package main

import (
	"github.com/pbanos/arboretum"
	"github.com/pbanos/arboretum/tree"
	"github.com/pbanos/arboretum/vote"
	"github.com/spf13/cobra"
)

type predictOptionsConfig struct {
	byName             bool
	method             string
	missingStrategy    string
	threshold          int
	category           string
	positiveClass      string
	operatingKind      string
	operatingThreshold float64
}

func (poc *predictOptionsConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&(poc.byName), "by-name", true, "interpret input keys as field names before field IDs")
	cmd.Flags().StringVar(&(poc.method), "method", "", "method to combine the predictions of ensemble models: plurality, confidence, probability, threshold or boosting (defaults to boosting for boosted ensembles and plurality otherwise)")
	cmd.Flags().StringVar(&(poc.missingStrategy), "missing-strategy", "last_prediction", "strategy for missing values: last_prediction or proportional")
	cmd.Flags().IntVar(&(poc.threshold), "threshold", 0, "minimum number of votes for the category to win with the threshold method")
	cmd.Flags().StringVar(&(poc.category), "category", "", "category singled out by the threshold method")
	cmd.Flags().StringVar(&(poc.positiveClass), "positive-class", "", "positive class of an operating point")
	cmd.Flags().StringVar(&(poc.operatingKind), "operating-kind", "", "kind of score used to choose the class: probability, confidence or votes")
	cmd.Flags().Float64Var(&(poc.operatingThreshold), "operating-threshold", 0.5, "minimum score for the positive class of an operating point to be predicted")
}

/*
options returns the prediction options the flags describe or an
error if any of them has an invalid value.
*/
func (poc *predictOptionsConfig) options() (*arboretum.PredictOptions, error) {
	method, err := vote.ParseMethod(poc.method)
	if err != nil {
		return nil, err
	}
	ms, err := tree.ParseMissingStrategy(poc.missingStrategy)
	if err != nil {
		return nil, err
	}
	opts := &arboretum.PredictOptions{
		ByName:          poc.byName,
		MissingStrategy: ms,
		Method:          method,
		Threshold:       poc.threshold,
		Category:        poc.category,
	}
	var kind arboretum.ScoreKind
	if poc.operatingKind != "" {
		kind, err = arboretum.ParseScoreKind(poc.operatingKind)
		if err != nil {
			return nil, err
		}
	}
	if poc.positiveClass != "" {
		if kind == "" {
			kind = arboretum.ProbabilityKind
		}
		opts.OperatingPoint = &arboretum.OperatingPoint{
			PositiveClass: poc.positiveClass,
			Kind:          kind,
			Threshold:     poc.operatingThreshold,
		}
		return opts, opts.OperatingPoint.Validate()
	}
	opts.OperatingKind = kind
	return opts, nil
}
