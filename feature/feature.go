package feature

import (
	"fmt"
	"sort"
)

// Optype is the kind of values a field holds.
type Optype string

const (
	// Numeric fields hold real numbers.
	Numeric Optype = "numeric"
	// Categorical fields hold a value among a finite set of labels.
	Categorical Optype = "categorical"
	// Text fields hold free text analysed into terms.
	Text Optype = "text"
	// Items fields hold separator-delimited lists of items.
	Items Optype = "items"
	// Datetime fields hold timestamps. Trees never split on them
	// directly but on fields derived from them.
	Datetime Optype = "datetime"
)

/*
Field represents a property that can be observed on a sample
and that models use as input or objective.

Fields are immutable once loaded and shared by every model
built on the same catalog.
*/
type Field struct {
	ID           string
	Name         string
	Optype       Optype
	ColumnNumber int
	Preferred    bool
	Summary      *Summary
	TermAnalysis *TermAnalysis
	ItemAnalysis *ItemAnalysis
}

/*
Summary holds the statistics of a field that local predictions
need: the categories of categorical fields with their instance
count, and the alternative forms of the terms of text fields.
*/
type Summary struct {
	Categories []Category
	TermForms  map[string][]string
	Missing    int
}

// Category is a label of a categorical field along the number
// of training instances that had it.
type Category struct {
	Label string
	Count float64
}

// CategoryLabels returns the labels of the field's categories in
// the order they were declared.
func (f *Field) CategoryLabels() []string {
	if f.Summary == nil {
		return nil
	}
	labels := make([]string, 0, len(f.Summary.Categories))
	for _, c := range f.Summary.Categories {
		labels = append(labels, c.Label)
	}
	return labels
}

// TermForms returns the alternative forms registered for the given
// term, not including the term itself.
func (f *Field) TermForms(term string) []string {
	if f.Summary == nil || f.Summary.TermForms == nil {
		return nil
	}
	return f.Summary.TermForms[term]
}

func (f *Field) String() string {
	return fmt.Sprintf("%s (%s, %s)", f.Name, f.ID, f.Optype)
}

/*
Catalog is the read-only collection of fields a model was
trained with, addressable by ID or by name.
*/
type Catalog struct {
	fields map[string]*Field
	byName map[string]*Field
	ids    []string
}

/*
NewCatalog takes a slice of fields and returns a catalog with them.
It returns an error if two fields share an ID. When two fields share
a name, the name resolves to the one with the lowest column number.
*/
func NewCatalog(fields []*Field) (*Catalog, error) {
	c := &Catalog{
		fields: make(map[string]*Field, len(fields)),
		byName: make(map[string]*Field, len(fields)),
	}
	for _, f := range fields {
		if _, ok := c.fields[f.ID]; ok {
			return nil, fmt.Errorf("duplicated field id %q", f.ID)
		}
		c.fields[f.ID] = f
		c.ids = append(c.ids, f.ID)
		if other, ok := c.byName[f.Name]; !ok || f.ColumnNumber < other.ColumnNumber {
			c.byName[f.Name] = f
		}
	}
	sort.Slice(c.ids, func(i, j int) bool {
		fi, fj := c.fields[c.ids[i]], c.fields[c.ids[j]]
		if fi.ColumnNumber != fj.ColumnNumber {
			return fi.ColumnNumber < fj.ColumnNumber
		}
		return fi.ID < fj.ID
	})
	return c, nil
}

// Field returns the field with the given ID or nil
func (c *Catalog) Field(id string) *Field {
	if c == nil {
		return nil
	}
	return c.fields[id]
}

// FieldByName returns the field with the given name or nil
func (c *Catalog) FieldByName(name string) *Field {
	if c == nil {
		return nil
	}
	return c.byName[name]
}

/*
Lookup takes a key and returns the field it refers to. When byName
is true the key is first interpreted as a field name and then as an
ID, otherwise the other way around. It returns nil if the key refers
to no field in the catalog.
*/
func (c *Catalog) Lookup(key string, byName bool) *Field {
	if byName {
		if f := c.FieldByName(key); f != nil {
			return f
		}
		return c.Field(key)
	}
	if f := c.Field(key); f != nil {
		return f
	}
	return c.FieldByName(key)
}

// Fields returns the fields in the catalog ordered by column number
func (c *Catalog) Fields() []*Field {
	if c == nil {
		return nil
	}
	result := make([]*Field, 0, len(c.ids))
	for _, id := range c.ids {
		result = append(result, c.fields[id])
	}
	return result
}

// Len returns the number of fields in the catalog
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

/*
Merge returns a new catalog with the fields of c and those of
other. Fields in other replace the fields of c with the same ID.
*/
func (c *Catalog) Merge(other *Catalog) (*Catalog, error) {
	merged := make(map[string]*Field)
	for _, f := range c.Fields() {
		merged[f.ID] = f
	}
	for _, f := range other.Fields() {
		merged[f.ID] = f
	}
	fields := make([]*Field, 0, len(merged))
	for _, f := range merged {
		fields = append(fields, f)
	}
	return NewCatalog(fields)
}
