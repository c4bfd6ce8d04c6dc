// Package delta decides what a check means given the previously persisted state
// and the records observed now.
package delta

import (
	"fmt"
	"jobwatch/internal/postings"
	"jobwatch/internal/state"
	"slices"
	"time"
)

// Mode selects which records are sent when the observed set changed.
type Mode string

const (
	// ModeAll sends every currently observed record.
	ModeAll Mode = "all"
	// ModeNew sends only records whose identity was not observed before. It needs the
	// identity list to be persisted alongside the fingerprint.
	ModeNew Mode = "new"
)

// ParseMode returns ModeAll for an empty string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeNew:
		return ModeNew, nil
	}
	return "", fmt.Errorf("unknown notify mode %q", s)
}

type Outcome int

const (
	// Empty means nothing was extracted, prior state is kept as-is.
	Empty Outcome = iota
	// Baseline means there was no prior fingerprint, one is established silently.
	Baseline
	Unchanged
	Changed
)

func (o Outcome) String() string {
	switch o {
	case Empty:
		return "empty"
	case Baseline:
		return "baseline"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decision is the result of Detect.
type Decision struct {
	Outcome Outcome
	// Fingerprint of the observed records, empty when Outcome is Empty.
	Fingerprint string
	// Notify holds the records to send. It is only non-empty when Outcome is Changed.
	Notify []postings.Record
	// Next is the state to persist, only meaningful when Persist is true.
	Next    state.State
	Persist bool
}

// Detect compares the observed records with the prior state.
//
// An empty observation never replaces a baseline so a transient format change in the
// source does not make every posting look new on the following check.
func Detect(prior state.State, records []postings.Record, mode Mode, now time.Time) Decision {
	if len(records) == 0 {
		return Decision{Outcome: Empty}
	}

	ids := postings.Identities(records)
	fingerprint := postings.FingerprintIdentities(ids)

	next := state.State{
		Fingerprint: fingerprint,
		LastCheck:   now,
	}
	if mode == ModeNew {
		next.Identities = ids
	}

	decision := Decision{
		Fingerprint: fingerprint,
		Next:        next,
		Persist:     true,
	}

	switch {
	case !prior.HasBaseline():
		decision.Outcome = Baseline
	case prior.Fingerprint == fingerprint:
		decision.Outcome = Unchanged
	default:
		decision.Outcome = Changed
		decision.Notify = selectRecords(prior, records, mode)
	}
	return decision
}

func selectRecords(prior state.State, records []postings.Record, mode Mode) []postings.Record {
	if mode != ModeNew || prior.Identities == nil {
		return records
	}

	known := make(map[string]struct{}, len(prior.Identities))
	for _, id := range prior.Identities {
		known[id] = struct{}{}
	}

	fresh := []postings.Record{}
	for _, r := range records {
		if _, ok := known[r.Identity()]; ok {
			continue
		}
		// the same identity may appear on several rows, send it once
		known[r.Identity()] = struct{}{}
		fresh = append(fresh, r)
	}
	return slices.Clip(fresh)
}
