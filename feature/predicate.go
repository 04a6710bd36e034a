package feature

import (
	"fmt"
	"strconv"
)

// Operator is the comparison a predicate applies
type Operator string

const (
	// LessThan operator
	LessThan Operator = "<"
	// LessOrEqual operator
	LessOrEqual Operator = "<="
	// Equal operator. With a nil value it tests for missing values.
	Equal Operator = "="
	// NotEqual operator. With a nil value it tests for present values.
	NotEqual Operator = "!="
	// AltNotEqual is an alias of NotEqual found in older exports
	AltNotEqual Operator = "/="
	// GreaterOrEqual operator
	GreaterOrEqual Operator = ">="
	// GreaterThan operator
	GreaterThan Operator = ">"
	// In operator tests membership of the sample value in a list value
	In Operator = "in"
)

var relations = map[Operator]string{
	LessOrEqual:    "no more than %s %s",
	GreaterOrEqual: "%s %s at least",
	GreaterThan:    "more than %s %s",
	LessThan:       "less than %s %s",
}

/*
Predicate is the test a node imposes on samples to be reached
from its parent: a comparison of the value of a field with a
reference value.

When Term is set, the field is a text or items field and the
compared value is the number of occurrences of the term in the
sample's text rather than the text itself.

Missing indicates that samples missing the field also satisfy
the predicate.
*/
type Predicate struct {
	Operator Operator
	Field    string
	Value    interface{}
	Term     string
	Missing  bool
}

/*
Matches takes a catalog and a sample and returns whether the sample
satisfies the predicate.

A sample missing the field satisfies the predicate only if the
predicate accepts missing values or tests for them explicitly
(operator = with a nil value). Text and items predicates treat a
missing value as an empty text.
*/
func (p *Predicate) Matches(c *Catalog, s Sample) bool {
	v, ok := s.ValueFor(p.Field)
	if !ok {
		if p.Term == "" {
			return p.Missing || (p.Operator == Equal && p.Value == nil)
		}
	} else if p.isNotEqual() && p.Value == nil {
		return true
	}
	if p.Term != "" {
		text, _ := v.(string)
		return compare(p.Operator, float64(p.termCount(c, text)), p.Value)
	}
	if p.Value == nil {
		return false
	}
	if p.Operator == In {
		return contains(p.Value, v)
	}
	return compare(p.Operator, v, p.Value)
}

// IsFullTerm returns whether the predicate's term is matched
// against the whole text of the sample
func (p *Predicate) IsFullTerm(c *Catalog) bool {
	if p.Term == "" {
		return false
	}
	f := c.Field(p.Field)
	if f == nil || f.Optype != Text || f.TermAnalysis == nil {
		return false
	}
	if f.TermAnalysis.TokenMode == TokenModeFullTerms {
		return true
	}
	return f.TermAnalysis.TokenMode == TokenModeAll && fullTermPattern.MatchString(p.Term)
}

func (p *Predicate) termCount(c *Catalog, text string) int {
	f := c.Field(p.Field)
	if f != nil && f.Optype == Items {
		return ItemMatches(text, p.Term, f.ItemAnalysis)
	}
	forms := []string{p.Term}
	var ta *TermAnalysis
	if f != nil {
		forms = append(forms, f.TermForms(p.Term)...)
		ta = f.TermAnalysis
	}
	return TermMatches(text, forms, ta)
}

func (p *Predicate) isNotEqual() bool {
	return p.Operator == NotEqual || p.Operator == AltNotEqual
}

/*
Rule takes a catalog and returns a human readable rendering of the
predicate using the field names in the catalog.
*/
func (p *Predicate) Rule(c *Catalog) string {
	name := p.Field
	if f := c.Field(p.Field); f != nil {
		name = f.Name
	}
	var orMissing string
	if p.Missing {
		orMissing = " or missing"
	}
	if p.Term != "" {
		fullTerm := p.IsFullTerm(c)
		count, _ := ToFloat(p.Value)
		var literal, suffix string
		if (p.Operator == LessThan && count <= 1) || (p.Operator == LessOrEqual && count == 0) {
			literal = "does not contain"
			if fullTerm {
				literal = "is not equal to"
			}
		} else {
			literal = "contains"
			if fullTerm {
				literal = "is equal to"
			} else if p.Operator != GreaterThan || count != 0 {
				if r, ok := relations[p.Operator]; ok {
					suffix = " " + fmt.Sprintf(r, formatValue(count), plural("time", count))
				}
			}
		}
		return fmt.Sprintf("%s %s %s%s%s", name, literal, p.Term, suffix, orMissing)
	}
	if p.Value == nil {
		if p.Operator == Equal {
			return fmt.Sprintf("%s is missing", name)
		}
		return fmt.Sprintf("%s is not missing", name)
	}
	return fmt.Sprintf("%s %s %s%s", name, p.Operator, formatValue(p.Value), orMissing)
}

func (p *Predicate) String() string {
	return p.Rule(nil)
}

func plural(word string, count float64) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

func formatValue(v interface{}) string {
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func compare(op Operator, a, b interface{}) bool {
	fa, aNum := ToFloat(a)
	fb, bNum := ToFloat(b)
	if aNum && bNum {
		switch op {
		case LessThan:
			return fa < fb
		case LessOrEqual:
			return fa <= fb
		case Equal:
			return fa == fb
		case NotEqual, AltNotEqual:
			return fa != fb
		case GreaterOrEqual:
			return fa >= fb
		case GreaterThan:
			return fa > fb
		}
		return false
	}
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		switch op {
		case LessThan:
			return sa < sb
		case LessOrEqual:
			return sa <= sb
		case Equal:
			return sa == sb
		case NotEqual, AltNotEqual:
			return sa != sb
		case GreaterOrEqual:
			return sa >= sb
		case GreaterThan:
			return sa > sb
		}
		return false
	}
	return op == NotEqual || op == AltNotEqual
}

func contains(list interface{}, v interface{}) bool {
	switch values := list.(type) {
	case []interface{}:
		for _, lv := range values {
			if compare(Equal, v, lv) {
				return true
			}
		}
	case []string:
		for _, lv := range values {
			if compare(Equal, v, lv) {
				return true
			}
		}
	}
	return false
}
