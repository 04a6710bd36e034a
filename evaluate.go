package arboretum

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/pbanos/arboretum/dataset"
	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/tree"
)

/*
Predictor is an interface for anything that makes predictions for
inputs: models, multimodels and ensembles.
*/
type Predictor interface {
	Predict(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*tree.Prediction, error)
}

var (
	_ Predictor = &Model{}
	_ Predictor = &MultiModel{}
	_ Predictor = &Ensemble{}
)

/*
BatchPredict takes a context, a predictor, a dataset reader,
prediction options and a lambda function. It predicts every record
read from the dataset and calls the lambda function with the index of
the record, the record and its prediction, stopping at the first error
the predictor or the lambda function return.
*/
func BatchPredict(ctx context.Context, p Predictor, r dataset.Reader, opts *PredictOptions, lambda func(int, dataset.Record, *tree.Prediction) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	records, errs := r.Read(ctx)
	i := 0
	for record := range records {
		prediction, err := p.Predict(ctx, record, opts)
		if err != nil {
			return fmt.Errorf("predicting record %d: %w", i, err)
		}
		if err = lambda(i, record, prediction); err != nil {
			return err
		}
		i++
	}
	return <-errs
}

/*
Evaluation holds the results of testing a predictor against a dataset
whose records have the value of the objective field.

Count is the number of records evaluated and Errors the number of
records the predictor failed to predict. For classification Accuracy
is the fraction of records whose class was predicted correctly. For
regression MeanAbsoluteError is the mean absolute difference between
the predicted and the actual values.
*/
type Evaluation struct {
	Count             int
	Errors            int
	Correct           int
	Accuracy          float64
	MeanAbsoluteError float64
}

func (ev *Evaluation) String() string {
	if math.IsNaN(ev.MeanAbsoluteError) {
		return fmt.Sprintf("%f accuracy over %d records, failed to make a prediction for %d records", ev.Accuracy, ev.Count, ev.Errors)
	}
	return fmt.Sprintf("%f mean absolute error over %d records, failed to make a prediction for %d records", ev.MeanAbsoluteError, ev.Count, ev.Errors)
}

/*
Evaluate takes a context, a predictor, a dataset reader, the key of
the objective field on its records and prediction options and returns
the evaluation of the predictor against the records or an error if
the dataset cannot be read. Records without a value for the objective
are not evaluated. Failed predictions count as errors and as wrong
predictions.
*/
func Evaluate(ctx context.Context, p Predictor, r dataset.Reader, objective string, opts *PredictOptions) (*Evaluation, error) {
	ev := &Evaluation{MeanAbsoluteError: math.NaN()}
	var absErrors float64
	regression := false
	records, errs := r.Read(ctx)
	for record := range records {
		expected, ok := record[objective]
		if !ok || expected == nil {
			continue
		}
		ev.Count++
		input := make(map[string]interface{}, len(record))
		for k, v := range record {
			if k != objective {
				input[k] = v
			}
		}
		prediction, err := p.Predict(ctx, input, opts)
		if err != nil {
			ev.Errors++
			continue
		}
		if value, isNumber := prediction.Output.(float64); isNumber {
			regression = true
			actual, ok := number(expected)
			if !ok {
				ev.Errors++
				continue
			}
			absErrors += math.Abs(value - actual)
			continue
		}
		if prediction.Label() == fmt.Sprintf("%v", expected) {
			ev.Correct++
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	if ev.Count == 0 {
		return ev, nil
	}
	ev.Accuracy = float64(ev.Correct) / float64(ev.Count)
	if regression {
		predicted := ev.Count - ev.Errors
		if predicted > 0 {
			ev.MeanAbsoluteError = tree.Round(absErrors / float64(predicted))
		}
	}
	return ev, nil
}

func number(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return feature.ToFloat(v)
}
