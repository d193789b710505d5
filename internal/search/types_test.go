package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutcomeDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{name: "success", outcome: Success("https://a.test", 200, "body"), want: ""},
		{name: "http 404", outcome: HTTPError("https://a.test", 404), want: "ERROR, HTTP 404"},
		{name: "http 503", outcome: HTTPError("https://a.test", 503), want: "ERROR, HTTP 503"},
		{name: "timeout", outcome: NetworkError("https://a.test", ErrKindTimeout), want: "Timeout"},
		{name: "unknown kind", outcome: NetworkError("https://a.test", ""), want: "ConnectionError"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.outcome.Describe())
		})
	}
}

func TestSuccessRecordsBytes(t *testing.T) {
	t.Parallel()

	out := Success("https://a.test", 200, "hello")
	require.True(t, out.OK())
	require.Equal(t, 5, out.Bytes)
}

func TestMatchResultString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[]", MatchResult(nil).String())
	require.Equal(t,
		"[('sasas', 1), ('siesta', 1)]",
		MatchResult{{Word: "sasas", Count: 1}, {Word: "siesta", Count: 1}}.String(),
	)
}

func TestRecordLine(t *testing.T) {
	t.Parallel()

	rec := Record{Source: "https://a.test", Payload: "ERROR, HTTP 404", Failed: true}
	require.Equal(t, "https://a.test: ERROR, HTTP 404", rec.Line())
}
