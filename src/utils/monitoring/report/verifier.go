package report

import (
	"go.uber.org/atomic"
)

type VerifierErrors struct {
	StoreError  atomic.Uint64 `json:"store_error"`
	SourceError atomic.Uint64 `json:"source_error"`
}

type VerifierState struct {
	SurveysVerified    atomic.Uint64 `json:"surveys_verified"`
	SurveysValid       atomic.Uint64 `json:"surveys_valid"`
	SurveysCompromised atomic.Uint64 `json:"surveys_compromised"`
	SectionsMismatched atomic.Uint64 `json:"sections_mismatched"`
	SourcesMissing     atomic.Uint64 `json:"sources_missing"`
	ChainBreaks        atomic.Uint64 `json:"chain_breaks"`
	SweepsFinished     atomic.Uint64 `json:"sweeps_finished"`
	VerdictsPersisted  atomic.Uint64 `json:"verdicts_persisted"`
}

type VerifierReport struct {
	State  VerifierState  `json:"state"`
	Errors VerifierErrors `json:"errors"`
}
