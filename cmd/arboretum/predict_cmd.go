package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	yaml "gopkg.in/yaml.v2"

	"github.com/pbanos/arboretum"
	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/dataset/csv"
	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/tree"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelConfig
	predictOptionsConfig
	datasetConfig
	queueConfig
	input  string
	output string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the objective field for an input or a dataset",
		Long:  `Use a model or ensemble to predict the objective field for an input record read as YAML or JSON, or for every record of a dataset`,
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
			if config.datasetInput != "" {
				err = config.predictDataset(ctx, predictor, opts)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
				return
			}
			input, err := readInput(config.input)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			prediction, err := predictor.Predict(ctx, input, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}
			out, err := yaml.Marshal(newPredictionOutput(prediction, catalog(predictor)))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			fmt.Print(string(out))
		},
	}
	config.modelConfig.addFlags(cmd)
	config.predictOptionsConfig.addFlags(cmd)
	config.datasetConfig.addFlags(cmd, "dataset to predict instead of a single input")
	config.queueConfig.addFlags(cmd)
	cmd.Flags().StringVarP(&(config.input), "input", "i", "", "path to a YAML or JSON file with the input to predict (defaults to STDIN)")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to the CSV file where the predictions for a dataset are written (defaults to STDOUT)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	err := pcc.modelConfig.Validate()
	if err != nil {
		return err
	}
	return pcc.queueConfig.Validate()
}

/*
predictDataset predicts every record of the dataset and writes them
along their predictions as CSV.
*/
func (pcc *predictCmdConfig) predictDataset(ctx context.Context, predictor arboretum.Predictor, opts *arboretum.PredictOptions) error {
	ds, err := pcc.dataset(ctx, pcc.logger)
	if err != nil {
		return err
	}
	defer pcc.datasetConfig.Close()
	f := os.Stdout
	if pcc.output != "" {
		f, err = os.Create(pcc.output)
		if err != nil {
			return fmt.Errorf("creating output file: %v", err)
		}
		defer f.Close()
	}
	var w csv.Writer
	write := func(r dataset.Record, p *tree.Prediction) error {
		if w == nil {
			var columns []string
			for k := range r {
				columns = append(columns, k)
			}
			sort.Strings(columns)
			columns = append(columns, "prediction", "confidence", "probability")
			w, err = csv.NewWriter(f, columns)
			if err != nil {
				return err
			}
		}
		_, err := w.Write([]dataset.Record{predictionRow(r, p)})
		return err
	}
	if pcc.parallel() {
		err = pcc.predictParallel(ctx, predictor, ds, opts, write)
	} else {
		err = arboretum.BatchPredict(ctx, predictor, ds, opts, func(i int, r dataset.Record, p *tree.Prediction) error {
			return write(r, p)
		})
	}
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}
	pcc.Logf("Predicted %d records", w.Count())
	return w.Flush()
}

/*
predictParallel predicts the records of the dataset with several
workers sharing a queue and calls write with the records and their
predictions in the order of the dataset.
*/
func (pcc *predictCmdConfig) predictParallel(ctx context.Context, predictor arboretum.Predictor, ds dataset.Reader, opts *arboretum.PredictOptions, write func(dataset.Record, *tree.Prediction) error) error {
	q, err := pcc.queue(ctx, pcc.logger)
	if err != nil {
		return err
	}
	defer pcc.queueConfig.Close()
	defer q.Stop(ctx)
	type result struct {
		record     dataset.Record
		prediction *tree.Prediction
	}
	lock := &sync.Mutex{}
	results := map[int]*result{}
	err = arboretum.ParallelPredict(ctx, predictor, ds, q, opts, pcc.workers, func(i int, r dataset.Record, p *tree.Prediction) error {
		lock.Lock()
		defer lock.Unlock()
		results[i] = &result{r, p}
		return nil
	})
	if err != nil {
		return err
	}
	indexes := make([]int, 0, len(results))
	for i := range results {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		if err = write(results[i].record, results[i].prediction); err != nil {
			return err
		}
	}
	return nil
}

func predictionRow(r dataset.Record, p *tree.Prediction) dataset.Record {
	row := dataset.Record{"prediction": p.Output}
	for k, v := range r {
		row[k] = v
	}
	if p.HasConfidence() {
		row["confidence"] = p.Confidence
	}
	if p.HasProbability() {
		row["probability"] = p.Probability
	}
	return row
}

func catalog(p arboretum.Predictor) *feature.Catalog {
	switch p := p.(type) {
	case *arboretum.Model:
		return p.Fields
	case *arboretum.Ensemble:
		return p.Fields
	}
	return nil
}

type predictionOutput struct {
	Prediction   interface{}        `yaml:"prediction"`
	Confidence   *float64           `yaml:"confidence,omitempty"`
	Probability  *float64           `yaml:"probability,omitempty"`
	Count        int                `yaml:"count,omitempty"`
	Distribution map[string]float64 `yaml:"distribution,omitempty"`
	Median       *float64           `yaml:"median,omitempty"`
	Min          *float64           `yaml:"min,omitempty"`
	Max          *float64           `yaml:"max,omitempty"`
	Rules        []string           `yaml:"rules,omitempty"`
	NextField    string             `yaml:"next_field,omitempty"`
	Unused       []string           `yaml:"unused_fields,omitempty"`
}

func newPredictionOutput(p *tree.Prediction, fields *feature.Catalog) *predictionOutput {
	po := &predictionOutput{
		Prediction:  p.Output,
		Confidence:  known(p.Confidence),
		Probability: known(p.Probability),
		Count:       p.Count,
		Median:      known(p.Median),
		Min:         known(p.Min),
		Max:         known(p.Max),
		Unused:      p.UnusedFields,
	}
	if len(p.Distribution) > 0 {
		po.Distribution = make(map[string]float64, len(p.Distribution))
		for _, b := range p.Distribution {
			po.Distribution[fmt.Sprintf("%v", b.Value)] = b.Count
		}
	}
	if fields != nil {
		po.Rules = p.Rules(fields)
		if f := fields.Field(p.NextField); f != nil {
			po.NextField = f.Name
		}
	}
	return po
}

func known(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
