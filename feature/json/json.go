/*
Package json decodes field metadata and node predicates from the
JSON structures found in model and ensemble exports.
*/
package json

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pbanos/arboretum/feature"
)

/*
Field is the JSON representation of a field in an export's
"fields" object, which maps field IDs to these.
*/
type Field struct {
	Name         string        `json:"name"`
	Optype       string        `json:"optype"`
	ColumnNumber int           `json:"column_number"`
	Preferred    *bool         `json:"preferred,omitempty"`
	Summary      *Summary      `json:"summary,omitempty"`
	TermAnalysis *TermAnalysis `json:"term_analysis,omitempty"`
	ItemAnalysis *ItemAnalysis `json:"item_analysis,omitempty"`
}

/*
Summary is the JSON representation of a field summary. Only the
parts used by local predictions are decoded. Categories is a list
of [label, count] pairs.
*/
type Summary struct {
	Categories   [][]interface{}     `json:"categories,omitempty"`
	TermForms    map[string][]string `json:"term_forms,omitempty"`
	MissingCount int                 `json:"missing_count,omitempty"`
}

// TermAnalysis is the JSON representation of a text field's term analysis
type TermAnalysis struct {
	CaseSensitive bool   `json:"case_sensitive"`
	TokenMode     string `json:"token_mode"`
	Language      string `json:"language,omitempty"`
}

// ItemAnalysis is the JSON representation of an items field's item analysis
type ItemAnalysis struct {
	Separator       string `json:"separator,omitempty"`
	SeparatorRegexp string `json:"separator_regexp,omitempty"`
}

/*
Predicate is the JSON representation of a node predicate. Older
exports encode the root predicate as the boolean true, which
Decode maps to a nil predicate.
*/
type Predicate struct {
	Operator string      `json:"operator"`
	Field    string      `json:"field"`
	Value    interface{} `json:"value"`
	Term     *string     `json:"term,omitempty"`
	Missing  bool        `json:"missing,omitempty"`
}

/*
Field takes the ID the JSON field was keyed with and returns the
corresponding *feature.Field or an error if its optype is unknown.
*/
func (jf *Field) Field(id string) (*feature.Field, error) {
	f := &feature.Field{
		ID:           id,
		Name:         jf.Name,
		Optype:       feature.Optype(jf.Optype),
		ColumnNumber: jf.ColumnNumber,
		Preferred:    jf.Preferred == nil || *jf.Preferred,
	}
	switch f.Optype {
	case feature.Numeric, feature.Categorical, feature.Text, feature.Items, feature.Datetime:
	default:
		return nil, fmt.Errorf("field %s has unknown optype %q", id, jf.Optype)
	}
	if f.Name == "" {
		f.Name = id
	}
	if jf.Summary != nil {
		s, err := jf.Summary.summary()
		if err != nil {
			return nil, fmt.Errorf("field %s: %v", id, err)
		}
		f.Summary = s
	}
	if jf.TermAnalysis != nil {
		f.TermAnalysis = &feature.TermAnalysis{
			CaseSensitive: jf.TermAnalysis.CaseSensitive,
			TokenMode:     jf.TermAnalysis.TokenMode,
			Language:      jf.TermAnalysis.Language,
		}
	}
	if jf.ItemAnalysis != nil {
		f.ItemAnalysis = &feature.ItemAnalysis{
			Separator:       jf.ItemAnalysis.Separator,
			SeparatorRegexp: jf.ItemAnalysis.SeparatorRegexp,
		}
	}
	return f, nil
}

func (js *Summary) summary() (*feature.Summary, error) {
	s := &feature.Summary{TermForms: js.TermForms, Missing: js.MissingCount}
	for _, pair := range js.Categories {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed category %v", pair)
		}
		count, ok := feature.ToFloat(pair[1])
		if !ok {
			return nil, fmt.Errorf("malformed category count %v", pair[1])
		}
		s.Categories = append(s.Categories, feature.Category{Label: fmt.Sprintf("%v", pair[0]), Count: count})
	}
	return s, nil
}

/*
Catalog takes a map of field IDs to raw JSON field definitions and
returns a *feature.Catalog with the decoded fields or an error.
*/
func Catalog(fields map[string]json.RawMessage) (*feature.Catalog, error) {
	result := make([]*feature.Field, 0, len(fields))
	for id, raw := range fields {
		jf := &Field{}
		err := json.Unmarshal(raw, jf)
		if err != nil {
			return nil, fmt.Errorf("decoding field %s: %v", id, err)
		}
		f, err := jf.Field(id)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return feature.NewCatalog(result)
}

/*
DecodeCatalog takes a slice of bytes with a JSON object mapping
field IDs to field definitions and returns the decoded catalog.
*/
func DecodeCatalog(data []byte) (*feature.Catalog, error) {
	fields := map[string]json.RawMessage{}
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return nil, fmt.Errorf("decoding fields: %v", err)
	}
	return Catalog(fields)
}

/*
DecodePredicate takes a slice of bytes with a JSON predicate and
returns the decoded predicate. A JSON true or null returns a nil
predicate, which only root nodes have.
*/
func DecodePredicate(data []byte) (*feature.Predicate, error) {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil || string(data) == "null" {
		return nil, nil
	}
	jp := &Predicate{}
	err := json.Unmarshal(data, jp)
	if err != nil {
		return nil, fmt.Errorf("decoding predicate: %v", err)
	}
	return jp.Predicate()
}

// Predicate returns the *feature.Predicate for the JSON predicate
// or an error if its operator is unknown. A trailing * on the operator
// marks the predicate as also true for missing values.
func (jp *Predicate) Predicate() (*feature.Predicate, error) {
	op := feature.Operator(jp.Operator)
	missing := jp.Missing
	if strings.HasSuffix(jp.Operator, "*") {
		op = feature.Operator(strings.TrimSuffix(jp.Operator, "*"))
		missing = true
	}
	switch op {
	case feature.LessThan, feature.LessOrEqual, feature.Equal, feature.NotEqual, feature.AltNotEqual,
		feature.GreaterOrEqual, feature.GreaterThan, feature.In:
	default:
		return nil, fmt.Errorf("unknown predicate operator %q", jp.Operator)
	}
	if jp.Field == "" {
		return nil, fmt.Errorf("predicate with operator %q has no field", jp.Operator)
	}
	p := &feature.Predicate{
		Operator: op,
		Field:    jp.Field,
		Value:    jp.Value,
		Missing:  missing,
	}
	if jp.Term != nil {
		p.Term = *jp.Term
	}
	return p, nil
}
