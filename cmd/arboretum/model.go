package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/pbanos/arboretum"
	"github.com/pbanos/arboretum/feature/yaml"
	"github.com/pbanos/arboretum/resolver"
	"github.com/spf13/cobra"
)

type modelConfig struct {
	resolverConfig
	modelInput  string
	fieldsInput string
	maxModels   int
	z           float64
	store       resolver.Store
}

func (mc *modelConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&(mc.modelInput), "model", "m", "", "path to a file with the JSON export of the model or ensemble to use (required)")
	cmd.Flags().StringVar(&(mc.fieldsInput), "fields", "", "path to a YAML file describing the fields of the model, replacing those in its export")
	cmd.Flags().IntVar(&(mc.maxModels), "max-models", 0, "maximum number of models of an ensemble to hold in memory at once (0 for no limit)")
	cmd.Flags().Float64Var(&(mc.z), "z", 1.96, "z-score of the confidence intervals")
	mc.resolverConfig.addFlags(cmd)
}

func (mc *modelConfig) Validate() error {
	if mc.modelInput == "" {
		return fmt.Errorf("required model flag was not set")
	}
	if mc.maxModels < 0 {
		return fmt.Errorf("max-models flag must not be negative")
	}
	return mc.resolverConfig.Validate()
}

// export is the part of a resource export telling its kind
type export struct {
	Resource string          `json:"resource"`
	Models   json.RawMessage `json:"models"`
}

func readExport(filepath string) ([]byte, *export, error) {
	data, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading export from %s: %v", filepath, err)
	}
	wrapper := struct {
		Object *export `json:"object"`
		export
	}{}
	if err = json.Unmarshal(data, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("parsing export from %s: %v", filepath, err)
	}
	if wrapper.Object != nil {
		return data, wrapper.Object, nil
	}
	return data, &wrapper.export, nil
}

func (e *export) isEnsemble() bool {
	return strings.HasPrefix(e.Resource, "ensemble/") || (len(e.Models) > 0 && string(e.Models) != "null")
}

func (mc *modelConfig) predictorOptions(ctx context.Context, l logger) ([]arboretum.Option, error) {
	opts := []arboretum.Option{arboretum.WithMaxModels(mc.maxModels), arboretum.WithZ(mc.z)}
	if mc.fieldsInput != "" {
		l.Logf("Reading fields from %s...", mc.fieldsInput)
		fields, err := yaml.ReadCatalogFromFile(mc.fieldsInput)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arboretum.WithFields(fields))
	}
	r, store, err := mc.resolver(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("opening model store: %v", err)
	}
	if r != nil {
		mc.store = store
		opts = append(opts, arboretum.WithResolver(r))
	}
	return opts, nil
}

/*
loadPredictor returns the model or ensemble whose export is found at
the path in the model flag.
*/
func (mc *modelConfig) loadPredictor(ctx context.Context, l logger) (arboretum.Predictor, error) {
	data, e, err := readExport(mc.modelInput)
	if err != nil {
		return nil, err
	}
	opts, err := mc.predictorOptions(ctx, l)
	if err != nil {
		return nil, err
	}
	if e.isEnsemble() {
		l.Logf("Loading ensemble %s...", e.Resource)
		return arboretum.NewEnsemble(ctx, data, opts...)
	}
	l.Logf("Loading model %s...", e.Resource)
	return arboretum.NewModel(data, opts...)
}

func (mc *modelConfig) loadModel(ctx context.Context, l logger) (*arboretum.Model, error) {
	p, err := mc.loadPredictor(ctx, l)
	if err != nil {
		return nil, err
	}
	m, ok := p.(*arboretum.Model)
	if !ok {
		return nil, fmt.Errorf("%s is not the export of a single model", mc.modelInput)
	}
	return m, nil
}

func (mc *modelConfig) Close(ctx context.Context) {
	if mc.store != nil {
		mc.store.Close(ctx)
	}
}
