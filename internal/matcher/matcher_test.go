package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitesearch/internal/search"
)

func TestMatchScenario(t *testing.T) {
	t.Parallel()

	// "pass" starts with p and "siesta" does not end with s.
	got := Default().Match("the sasas and pass siesta")
	require.Equal(t, search.MatchResult{{Word: "sasas", Count: 1}}, got)
	require.Equal(t, "[('sasas', 1)]", got.String())
}

func TestMatchRanksByCountThenFirstSeen(t *testing.T) {
	t.Parallel()

	text := "sees sits sees sums sits sees sods sums"
	got := Default().Match(text)
	require.Equal(t, search.MatchResult{
		{Word: "sees", Count: 3},
		{Word: "sits", Count: 2},
		{Word: "sums", Count: 2},
	}, got)
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := Default().Match("Sirius SIRIUS sirius")
	require.Equal(t, search.MatchResult{{Word: "sirius", Count: 3}}, got)
}

func TestMatchRequiresWordBoundaryAndVowel(t *testing.T) {
	t.Parallel()

	// "ss" has no vowel, "mosses" does not start with s, "sass_" is bounded by an underscore.
	got := Default().Match("ss mosses sass_ sxs")
	require.Empty(t, got)
}

func TestMatchEmptyInputs(t *testing.T) {
	t.Parallel()

	m := Default()
	require.Empty(t, m.Match(""))
	require.Empty(t, m.Match("\x00\xff<<>>"))
	require.NotNil(t, m.Match(""))
}

func TestMatchIsIdempotent(t *testing.T) {
	t.Parallel()

	m := Default()
	text := "sells seashells sells sass seas sells seas"
	first := m.Match(text)
	second := m.Match(text)
	require.Equal(t, first, second)
	require.LessOrEqual(t, len(first), DefaultLimit)
	for i := 1; i < len(first); i++ {
		require.GreaterOrEqual(t, first[i-1].Count, first[i].Count)
	}
}

func TestWithLimit(t *testing.T) {
	t.Parallel()

	m, err := New(DefaultPattern, WithLimit(1))
	require.NoError(t, err)
	require.Equal(t, search.MatchResult{{Word: "sits", Count: 2}}, m.Match("sees sits sits"))
}

func TestCustomPattern(t *testing.T) {
	t.Parallel()

	m, err := New(`\bp[a-z]*s\b`)
	require.NoError(t, err)
	require.Equal(t, search.MatchResult{{Word: "pass", Count: 1}}, m.Match("the sasas and pass siesta"))
}

func TestNewRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := New(`\bs[`)
	require.Error(t, err)
}

func TestWithHTMLTextIgnoresMarkupAndScripts(t *testing.T) {
	t.Parallel()

	body := `<html><head><script>var sasas = "sasas";</script><style>.sites{}</style></head>
<body><p class="sails">seeds and sits</p></body></html>`

	raw := Default().Match(body)
	require.Contains(t, raw, search.Match{Word: "sasas", Count: 2})

	m, err := New(DefaultPattern, WithHTMLText(true))
	require.NoError(t, err)
	require.Equal(t, search.MatchResult{
		{Word: "seeds", Count: 1},
		{Word: "sits", Count: 1},
	}, m.Match(body))
}
