package feature

import (
	"regexp"
	"strings"
	"sync"
)

const (
	// TokenModeAll matches multi-word terms as full terms and single
	// tokens as contained tokens.
	TokenModeAll = "all"
	// TokenModeTokensOnly matches every term as a contained token.
	TokenModeTokensOnly = "tokens_only"
	// TokenModeFullTerms matches every term against the whole text.
	TokenModeFullTerms = "full_terms_only"
)

/*
TermAnalysis holds the options a text field was tokenized with
during training.
*/
type TermAnalysis struct {
	CaseSensitive bool
	TokenMode     string
	Language      string
}

/*
ItemAnalysis holds the options an items field was split with
during training. SeparatorRegexp takes precedence over Separator.
*/
type ItemAnalysis struct {
	Separator       string
	SeparatorRegexp string
}

var fullTermPattern = regexp.MustCompile(`^.+\b.+$`)

// patterns holds the compiled term and item expressions by source,
// with nil for those that failed to compile
var patterns sync.Map

func pattern(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := regexp.Compile(expr)
	actual, _ := patterns.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp)
}

/*
TermMatches takes a text, the list of forms of a term (the term
itself first) and the field's term analysis, and returns the number
of occurrences of the term in the text.
*/
func TermMatches(text string, forms []string, ta *TermAnalysis) int {
	if len(forms) == 0 {
		return 0
	}
	mode := TokenModeTokensOnly
	var caseSensitive bool
	if ta != nil {
		caseSensitive = ta.CaseSensitive
		if ta.TokenMode != "" {
			mode = ta.TokenMode
		}
	}
	first := forms[0]
	if mode == TokenModeFullTerms {
		return fullTermMatch(text, first, caseSensitive)
	}
	if mode == TokenModeAll && len(forms) == 1 && fullTermPattern.MatchString(first) {
		return fullTermMatch(text, first, caseSensitive)
	}
	return tokenMatches(text, forms, caseSensitive)
}

func fullTermMatch(text, term string, caseSensitive bool) int {
	if !caseSensitive {
		text = strings.ToLower(text)
		term = strings.ToLower(term)
	}
	if text == term {
		return 1
	}
	return 0
}

func tokenMatches(text string, forms []string, caseSensitive bool) int {
	quoted := make([]string, 0, len(forms))
	for _, f := range forms {
		quoted = append(quoted, regexp.QuoteMeta(f))
	}
	expr := `(\b|_)` + strings.Join(quoted, `(\b|_)|(\b|_)`) + `(\b|_)`
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re := pattern(expr)
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

/*
ItemMatches takes a text, an item and the field's item analysis and
returns the number of times the item appears in the text as a whole
item, that is, delimited by separators or the text boundaries.
*/
func ItemMatches(text, item string, ia *ItemAnalysis) int {
	separator := " "
	var sepExpr string
	if ia != nil {
		if ia.Separator != "" {
			separator = ia.Separator
		}
		sepExpr = ia.SeparatorRegexp
	}
	if sepExpr == "" {
		sepExpr = regexp.QuoteMeta(separator)
	}
	re := pattern(`(^|` + sepExpr + `)` + regexp.QuoteMeta(item) + `($|` + sepExpr + `)`)
	if re == nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}
