package json_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/feature"
	fjson "github.com/pbanos/arboretum/feature/json"
)

const fields = `{
	"000000": {"name": "petal length", "optype": "numeric", "column_number": 0},
	"000001": {
		"name": "review", "optype": "text", "column_number": 1, "preferred": false,
		"summary": {"term_forms": {"great": ["greatest"]}, "missing_count": 2},
		"term_analysis": {"case_sensitive": true, "token_mode": "all", "language": "en"}
	},
	"000002": {"name": "basket", "optype": "items", "column_number": 2, "item_analysis": {"separator": ";"}},
	"000003": {
		"optype": "categorical", "column_number": 3,
		"summary": {"categories": [["Iris-setosa", 50], ["Iris-virginica", 48]]}
	}
}`

func TestDecodeCatalog(t *testing.T) {
	c, err := fjson.DecodeCatalog([]byte(fields))
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())

	pl := c.FieldByName("petal length")
	require.NotNil(t, pl)
	assert.Equal(t, "000000", pl.ID)
	assert.Equal(t, feature.Numeric, pl.Optype)
	assert.True(t, pl.Preferred)

	review := c.Field("000001")
	require.NotNil(t, review)
	assert.False(t, review.Preferred)
	assert.Equal(t, []string{"greatest"}, review.TermForms("great"))
	assert.Equal(t, 2, review.Summary.Missing)
	assert.Equal(t, &feature.TermAnalysis{CaseSensitive: true, TokenMode: "all", Language: "en"}, review.TermAnalysis)

	basket := c.Field("000002")
	require.NotNil(t, basket)
	assert.Equal(t, &feature.ItemAnalysis{Separator: ";"}, basket.ItemAnalysis)

	species := c.Field("000003")
	require.NotNil(t, species)
	assert.Equal(t, "000003", species.Name)
	assert.Equal(t, []feature.Category{{Label: "Iris-setosa", Count: 50}, {Label: "Iris-virginica", Count: 48}}, species.Summary.Categories)
}

func TestDecodeCatalogErrors(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"not an object", `[1, 2]`},
		{"invalid field", `{"000000": 3}`},
		{"unknown optype", `{"000000": {"name": "x", "optype": "image"}}`},
		{"malformed category", `{"000000": {"optype": "categorical", "summary": {"categories": [["a"]]}}}`},
		{"malformed category count", `{"000000": {"optype": "categorical", "summary": {"categories": [["a", "many"]]}}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fjson.DecodeCatalog([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodePredicate(t *testing.T) {
	testCases := []struct {
		name     string
		data     string
		expected *feature.Predicate
	}{
		{"root true", `true`, nil},
		{"null", `null`, nil},
		{
			"numeric",
			`{"operator": "<", "field": "000000", "value": 2.45}`,
			&feature.Predicate{Operator: feature.LessThan, Field: "000000", Value: 2.45},
		},
		{
			"missing aware",
			`{"operator": "!=", "field": "000003", "value": "Iris-setosa", "missing": true}`,
			&feature.Predicate{Operator: feature.NotEqual, Field: "000003", Value: "Iris-setosa", Missing: true},
		},
		{
			"is missing",
			`{"operator": "=", "field": "000003", "value": null}`,
			&feature.Predicate{Operator: feature.Equal, Field: "000003"},
		},
		{
			"term",
			`{"operator": ">", "field": "000001", "value": 0, "term": "great"}`,
			&feature.Predicate{Operator: feature.GreaterThan, Field: "000001", Value: 0.0, Term: "great"},
		},
		{
			"starred operator",
			`{"operator": ">*", "field": "000000", "value": 1}`,
			&feature.Predicate{Operator: feature.GreaterThan, Field: "000000", Value: 1.0, Missing: true},
		},
		{
			"starred not equal",
			`{"operator": "!=*", "field": "000003", "value": "Iris-setosa"}`,
			&feature.Predicate{Operator: feature.NotEqual, Field: "000003", Value: "Iris-setosa", Missing: true},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := fjson.DecodePredicate([]byte(tc.data))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestDecodePredicateErrors(t *testing.T) {
	for _, data := range []string{
		`{"operator": "~", "field": "000000", "value": 1}`,
		`{"operator": "*", "field": "000000", "value": 1}`,
		`{"operator": "<", "value": 1}`,
		`"<"`,
	} {
		_, err := fjson.DecodePredicate([]byte(data))
		assert.Error(t, err, data)
	}
}
