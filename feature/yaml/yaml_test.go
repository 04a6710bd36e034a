package yaml_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/arboretum/feature"
	"github.com/pbanos/arboretum/feature/yaml"
)

const metadata = `
fields:
  "000000":
    name: petal length
    optype: numeric
  "000001":
    name: review
    optype: text
    column: 1
    case_sensitive: true
    token_mode: full_terms_only
    term_forms:
      great: [greatest]
  "000002":
    name: basket
    optype: items
    column: 2
    separator: ";"
  "000003":
    optype: categorical
    column: 3
    categories: [Iris-setosa, Iris-versicolor]
`

func TestReadCatalog(t *testing.T) {
	c, err := yaml.ReadCatalog([]byte(metadata))
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())

	assert.Equal(t, feature.Numeric, c.FieldByName("petal length").Optype)

	review := c.Field("000001")
	require.NotNil(t, review)
	assert.Equal(t, &feature.TermAnalysis{CaseSensitive: true, TokenMode: feature.TokenModeFullTerms}, review.TermAnalysis)
	assert.Equal(t, []string{"greatest"}, review.TermForms("great"))

	basket := c.Field("000002")
	require.NotNil(t, basket)
	assert.Equal(t, ";", basket.ItemAnalysis.Separator)

	species := c.Field("000003")
	require.NotNil(t, species)
	assert.Equal(t, "000003", species.Name)
	assert.Equal(t, []string{"Iris-setosa", "Iris-versicolor"}, species.CategoryLabels())
}

func TestReadCatalogErrors(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"invalid yaml", "fields: [\n"},
		{"no fields", "model: tree\n"},
		{"empty field", "fields:\n  \"000000\":\n"},
		{"invalid optype", "fields:\n  \"000000\":\n    optype: image\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := yaml.ReadCatalog([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestReadCatalogFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "fields")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "fields.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte(metadata), 0644))

	c, err := yaml.ReadCatalogFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = yaml.ReadCatalogFromFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
