package feature

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

/*
DefaultMissingTokens are the string values interpreted as a missing
value when a model export does not define its own.
*/
var DefaultMissingTokens = []string{
	"", "N/A", "n/a", "NULL", "null", "-", "#DIV/0", "#REF!", "#NAME?",
	"NIL", "nil", "NA", "na", "#VALUE!", "#NULL!", "NaN", "#N/A", "#NUM!", "?",
}

/*
Sample holds the values of a sample keyed by field ID. A field
without an entry, or with a nil entry, is missing on the sample.
*/
type Sample map[string]interface{}

// ValueFor returns the value of the field with the given ID and
// whether the sample defines it.
func (s Sample) ValueFor(id string) (interface{}, bool) {
	v, ok := s[id]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

/*
Normalizer turns raw input records into samples a model can
evaluate: it resolves keys to field IDs, drops missing tokens and
values for fields the model does not use, and casts values to the
type each field's optype requires.
*/
type Normalizer struct {
	Catalog       *Catalog
	InputFields   []string
	ObjectiveID   string
	MissingTokens []string
}

/*
Normalize takes an input record and a byName flag indicating whether
its keys are preferably field names (true) or IDs (false). It returns
the resulting sample, the sorted list of input keys that the model
does not use and an error if a value cannot be cast to its field type.
*/
func (n *Normalizer) Normalize(input map[string]interface{}, byName bool) (Sample, []string, error) {
	tokens := n.MissingTokens
	if tokens == nil {
		tokens = DefaultMissingTokens
	}
	allowed := make(map[string]bool, len(n.InputFields))
	for _, id := range n.InputFields {
		allowed[id] = true
	}
	sample := make(Sample, len(input))
	var unused []string
	for key, value := range input {
		f := n.Catalog.Lookup(key, byName)
		if f == nil || f.ID == n.ObjectiveID || (len(allowed) > 0 && !allowed[f.ID]) {
			unused = append(unused, key)
			continue
		}
		if value == nil || isMissingToken(value, tokens) {
			continue
		}
		cv, err := Cast(f, value)
		if err != nil {
			return nil, nil, err
		}
		sample[f.ID] = cv
	}
	sort.Strings(unused)
	return sample, unused, nil
}

func isMissingToken(value interface{}, tokens []string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, t := range tokens {
		if s == t {
			return true
		}
	}
	return false
}

/*
Cast takes a field and a value and returns the value converted to
the representation predicates expect for the field's optype: float64
for numeric fields and string for categorical, text and items fields.
It returns an error if a numeric field receives a value that cannot be
parsed as a number.
*/
func Cast(f *Field, value interface{}) (interface{}, error) {
	switch f.Optype {
	case Numeric:
		if fv, ok := ToFloat(value); ok {
			return fv, nil
		}
		if s, ok := value.(string); ok {
			fv, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("numeric field %s got invalid value %q", f.Name, s)
			}
			return fv, nil
		}
		return nil, fmt.Errorf("numeric field %s got %T value", f.Name, value)
	case Categorical, Text, Items:
		if s, ok := value.(string); ok {
			return s, nil
		}
		if fv, ok := ToFloat(value); ok {
			return strconv.FormatFloat(fv, 'f', -1, 64), nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return value, nil
}

/*
ToFloat takes a value and returns it as a float64 along a boolean
indicating whether the value was numeric at all.
*/
func ToFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
