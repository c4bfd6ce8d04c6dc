package delta

import (
	"jobwatch/internal/postings"
	"jobwatch/internal/state"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var (
	rowA = postings.Record{Company: "Acme", Role: "Engineer", Location: "Remote", Age: "0d", Link: "link1"}
	rowB = postings.Record{Company: "Beta", Role: "Scientist", Location: "NYC", Age: "1d", Link: "link2"}
	rowC = postings.Record{Company: "Gamma", Role: "Analyst", Location: "SF", Age: "2d", Link: "link3"}

	t1 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
)

func TestDetectFirstCheck(t *testing.T) {
	decision := Detect(state.State{}, []postings.Record{rowA, rowB}, ModeAll, t1)

	require.Equal(t, Baseline, decision.Outcome)
	require.True(t, decision.Persist)
	require.Empty(t, decision.Notify)
	require.Equal(t, postings.Fingerprint([]postings.Record{rowA, rowB}), decision.Next.Fingerprint)
	require.Equal(t, t1, decision.Next.LastCheck)
	require.Nil(t, decision.Next.Identities)
}

func TestDetectSequence(t *testing.T) {
	first := Detect(state.State{}, []postings.Record{rowA, rowB}, ModeAll, t1)
	require.Equal(t, Baseline, first.Outcome)

	same := Detect(first.Next, []postings.Record{rowB, rowA}, ModeAll, t2)
	require.Equal(t, Unchanged, same.Outcome)
	require.Empty(t, same.Notify)
	require.True(t, same.Persist)
	require.Equal(t, first.Next.Fingerprint, same.Next.Fingerprint)
	require.Equal(t, t2, same.Next.LastCheck)

	changed := Detect(same.Next, []postings.Record{rowA, rowB, rowC}, ModeAll, t2)
	require.Equal(t, Changed, changed.Outcome)
	require.NotEqual(t, first.Next.Fingerprint, changed.Next.Fingerprint)
	if diff := cmp.Diff([]postings.Record{rowA, rowB, rowC}, changed.Notify); diff != "" {
		t.Fatalf("notified records mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectEmpty(t *testing.T) {
	baseline := state.State{Fingerprint: "f1", LastCheck: t1}

	for _, prior := range []state.State{{}, baseline} {
		for _, records := range [][]postings.Record{nil, {}} {
			decision := Detect(prior, records, ModeAll, t2)
			require.Equal(t, Empty, decision.Outcome)
			require.False(t, decision.Persist)
			require.Empty(t, decision.Notify)
			require.Empty(t, decision.Fingerprint)
		}
	}
}

func TestDetectNewMode(t *testing.T) {
	testCases := []struct {
		name     string
		prior    []postings.Record
		current  []postings.Record
		outcome  Outcome
		expected []postings.Record
	}{
		{
			name:     "row added",
			prior:    []postings.Record{rowA, rowB},
			current:  []postings.Record{rowA, rowB, rowC},
			outcome:  Changed,
			expected: []postings.Record{rowC},
		},
		{
			name:     "row replaced",
			prior:    []postings.Record{rowA, rowB},
			current:  []postings.Record{rowC, rowA},
			outcome:  Changed,
			expected: []postings.Record{rowC},
		},
		{
			name:     "row removed",
			prior:    []postings.Record{rowA, rowB},
			current:  []postings.Record{rowA},
			outcome:  Changed,
			expected: []postings.Record{},
		},
		{
			name:     "duplicate new row sent once",
			prior:    []postings.Record{rowA},
			current:  []postings.Record{rowA, rowC, rowC},
			outcome:  Changed,
			expected: []postings.Record{rowC},
		},
		{
			name:    "nothing changed",
			prior:   []postings.Record{rowA, rowB},
			current: []postings.Record{rowB, rowA},
			outcome: Unchanged,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			prior := Detect(state.State{}, test.prior, ModeNew, t1)
			require.Equal(t, Baseline, prior.Outcome)
			require.Equal(t, postings.Identities(test.prior), prior.Next.Identities)

			decision := Detect(prior.Next, test.current, ModeNew, t2)
			require.Equal(t, test.outcome, decision.Outcome)
			require.Equal(t, postings.Identities(test.current), decision.Next.Identities)
			if test.outcome != Changed {
				require.Empty(t, decision.Notify)
				return
			}
			if diff := cmp.Diff(test.expected, decision.Notify); diff != "" {
				t.Fatalf("notified records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectNewModeWithoutKnownIdentities(t *testing.T) {
	// a baseline written in "all" mode carries no identity list
	prior := Detect(state.State{}, []postings.Record{rowA}, ModeAll, t1)
	decision := Detect(prior.Next, []postings.Record{rowA, rowB}, ModeNew, t2)

	require.Equal(t, Changed, decision.Outcome)
	require.Equal(t, []postings.Record{rowA, rowB}, decision.Notify)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeAll, mode)

	mode, err = ParseMode("new")
	require.NoError(t, err)
	require.Equal(t, ModeNew, mode)

	_, err = ParseMode("diff")
	require.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "baseline", Baseline.String())
	require.Equal(t, "changed", Changed.String())
	require.Equal(t, "outcome(9)", Outcome(9).String())
}
