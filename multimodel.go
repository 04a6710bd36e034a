package arboretum

import (
	"context"
	"fmt"

	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/tree"
	"github.com/pbanos/arboretum/vote"
)

/*
MultiModel makes predictions with several models at once, combining
their predictions with a vote.MultiVote.
*/
type MultiModel struct {
	Models []*Model
	Fields *feature.Catalog
	z      float64
}

/*
NewMultiModel takes a list of models and returns a MultiModel over
them whose catalog merges the catalogs of all of them.
*/
func NewMultiModel(models ...*Model) (*MultiModel, error) {
	mm := &MultiModel{Models: models, z: tree.DefaultZ}
	for _, m := range models {
		if mm.Fields == nil {
			mm.Fields = m.Fields
			mm.z = m.z
			continue
		}
		fields, err := mm.Fields.Merge(m.Fields)
		if err != nil {
			return nil, fmt.Errorf("merging fields of model %s: %v", m.ID, err)
		}
		mm.Fields = fields
	}
	return mm, nil
}

/*
Votes takes a context, an input and prediction options and returns the
vote set with the prediction of every model for the input, in the
order of the models. The vote set is boosted when the models are
boosted trees.
*/
func (mm *MultiModel) Votes(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*vote.MultiVote, error) {
	opts = predictOptions(opts)
	mv := vote.New()
	if len(mm.Models) > 0 && mm.Models[0].Kind == BoostedTree {
		mv = vote.NewBoosting(0, nil, nil)
	}
	err := mm.appendVotes(ctx, mv, input, opts)
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func (mm *MultiModel) appendVotes(ctx context.Context, mv *vote.MultiVote, input map[string]interface{}, opts *PredictOptions) error {
	for _, m := range mm.Models {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, _, err := m.Normalize(input, opts.ByName)
		if err != nil {
			return fmt.Errorf("normalizing input for model %s: %v", m.ID, err)
		}
		p, err := m.predictSample(s, opts)
		if err != nil {
			return err
		}
		appendVote(mv, m, p)
	}
	return nil
}

func appendVote(mv *vote.MultiVote, m *Model, p *tree.Prediction) {
	if m.Boosting != nil {
		mv.AppendBoosted(p, m.Boosting.Weight, m.Boosting.ObjectiveClass)
		return
	}
	mv.Append(p)
}

/*
Predict takes a context, an input and prediction options and returns
the combination of the predictions of all models for the input with
the method in the options.
*/
func (mm *MultiModel) Predict(ctx context.Context, input map[string]interface{}, opts *PredictOptions) (*tree.Prediction, error) {
	opts = predictOptions(opts)
	mv, err := mm.Votes(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	p, err := mv.Combine(opts.Method, opts.voteOptions(mm.z))
	if err != nil {
		return nil, fmt.Errorf("combining votes: %w", err)
	}
	return p, nil
}
