// Package matcher implements the lexical predicate used to rank words on a page.
package matcher

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// DefaultPattern matches word-bounded words that start and end with "s" and
// contain at least one vowel in between.
const DefaultPattern = `\bs[a-z]*[aeiou][a-z]*s\b`

// DefaultLimit is the number of ranked matches kept per page.
const DefaultLimit = 3

// Matcher counts pattern matches in text and keeps the most frequent ones.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	re       *regexp.Regexp
	limit    int
	htmlText bool
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLimit overrides how many matches are returned.
func WithLimit(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithHTMLText reduces HTML bodies to their visible text before matching.
func WithHTMLText(enabled bool) Option {
	return func(m *Matcher) {
		m.htmlText = enabled
	}
}

// New compiles pattern case-insensitively and returns a Matcher.
func New(pattern string, opts ...Option) (*Matcher, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	m := &Matcher{re: re, limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Default returns a Matcher using DefaultPattern and DefaultLimit.
func Default() *Matcher {
	m, err := New(DefaultPattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the top matches in text ranked by descending count. Ties keep
// the order in which the words first appeared.
func (m *Matcher) Match(text string) search.MatchResult {
	if m.htmlText {
		text = visibleText(text)
	}
	found := m.re.FindAllString(strings.ToLower(text), -1)
	if len(found) == 0 {
		return search.MatchResult{}
	}

	index := make(map[string]int, len(found))
	counts := make(search.MatchResult, 0, len(found))
	for _, word := range found {
		if i, ok := index[word]; ok {
			counts[i].Count++
			continue
		}
		index[word] = len(counts)
		counts = append(counts, search.Match{Word: word, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > m.limit {
		counts = counts[:m.limit]
	}
	return counts
}

func visibleText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}
