/*
Package yaml provides methods to parse field catalogs, also known
as metadata, from YAML documents.
*/
package yaml

import (
	"fmt"
	"io/ioutil"

	"github.com/pbanos/arboretum/feature"
	yaml "gopkg.in/yaml.v2"
)

type field struct {
	Name          string              `yaml:"name"`
	Optype        string              `yaml:"optype"`
	Column        int                 `yaml:"column"`
	Categories    []string            `yaml:"categories"`
	TermForms     map[string][]string `yaml:"term_forms"`
	CaseSensitive bool                `yaml:"case_sensitive"`
	TokenMode     string              `yaml:"token_mode"`
	Separator     string              `yaml:"separator"`
	SeparatorRE   string              `yaml:"separator_regexp"`
}

/*
ReadCatalog takes a slice of bytes with a field specification in YML
and returns the catalog parsed from it or an error.
The YML is expected to be an object containing a fields property. The
value for this should be an object with a property for each field ID
holding its name, optype and, depending on the optype, its categories,
term forms and term or item analysis options:

  fields:
    "000000":
      name: sepal length
      optype: numeric
    "000004":
      name: species
      optype: categorical
      categories: [Iris-setosa, Iris-versicolor, Iris-virginica]
*/
func ReadCatalog(md []byte) (*feature.Catalog, error) {
	metadata := struct {
		Fields map[string]*field
	}{}
	err := yaml.Unmarshal(md, &metadata)
	if err != nil {
		return nil, fmt.Errorf("parsing yml fields: %v", err)
	}
	if metadata.Fields == nil {
		return nil, fmt.Errorf("metadata file has no field information")
	}
	fields := make([]*feature.Field, 0, len(metadata.Fields))
	for id, yf := range metadata.Fields {
		if yf == nil {
			return nil, fmt.Errorf("empty declaration for field %s", id)
		}
		f, err := yf.field(id)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return feature.NewCatalog(fields)
}

/*
ReadCatalogFromFile takes a filepath string, reads its contents and uses
ReadCatalog to parse it and return the parsed catalog or an error.
If the file indicated by the filepath cannot be opened for reading an error
will be returned.
*/
func ReadCatalogFromFile(filepath string) (*feature.Catalog, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading fields yml file %s: %v", filepath, err)
	}
	c, err := ReadCatalog(md)
	if err != nil {
		err = fmt.Errorf("parsing fields yml file %s: %v", filepath, err)
	}
	return c, err
}

func (yf *field) field(id string) (*feature.Field, error) {
	f := &feature.Field{
		ID:           id,
		Name:         yf.Name,
		Optype:       feature.Optype(yf.Optype),
		ColumnNumber: yf.Column,
		Preferred:    true,
	}
	if f.Name == "" {
		f.Name = id
	}
	switch f.Optype {
	case feature.Numeric, feature.Datetime:
	case feature.Categorical:
		s := &feature.Summary{}
		for _, c := range yf.Categories {
			s.Categories = append(s.Categories, feature.Category{Label: c})
		}
		f.Summary = s
	case feature.Text:
		f.Summary = &feature.Summary{TermForms: yf.TermForms}
		f.TermAnalysis = &feature.TermAnalysis{CaseSensitive: yf.CaseSensitive, TokenMode: yf.TokenMode}
	case feature.Items:
		f.ItemAnalysis = &feature.ItemAnalysis{Separator: yf.Separator, SeparatorRegexp: yf.SeparatorRE}
	default:
		return nil, fmt.Errorf("invalid optype %q for field %s", yf.Optype, id)
	}
	return f, nil
}
