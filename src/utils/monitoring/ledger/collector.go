package monitor_ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	BlocksCreated         *prometheus.Desc
	SectionsUpdated       *prometheus.Desc
	TimelineEventsWritten *prometheus.Desc
	CanonicalizationError *prometheus.Desc
	StoreTimeoutError     *prometheus.Desc
	StoreConflictError    *prometheus.Desc
	StoreOtherError       *prometheus.Desc

	SurveysVerified    *prometheus.Desc
	SurveysValid       *prometheus.Desc
	SurveysCompromised *prometheus.Desc
	SectionsMismatched *prometheus.Desc
	SourcesMissing     *prometheus.Desc
	ChainBreaks        *prometheus.Desc
	SweepsFinished     *prometheus.Desc
	VerdictsPersisted  *prometheus.Desc
	VerifierStoreError *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "ledger",
	}

	return &Collector{
		BlocksCreated:         prometheus.NewDesc("blocks_created", "", nil, labels),
		SectionsUpdated:       prometheus.NewDesc("sections_updated", "", nil, labels),
		TimelineEventsWritten: prometheus.NewDesc("timeline_events_written", "", nil, labels),
		CanonicalizationError: prometheus.NewDesc("canonicalization_error", "", nil, labels),
		StoreTimeoutError:     prometheus.NewDesc("store_timeout_error", "", nil, labels),
		StoreConflictError:    prometheus.NewDesc("store_conflict_error", "", nil, labels),
		StoreOtherError:       prometheus.NewDesc("store_other_error", "", nil, labels),
		SurveysVerified:       prometheus.NewDesc("surveys_verified", "", nil, labels),
		SurveysValid:          prometheus.NewDesc("surveys_valid", "", nil, labels),
		SurveysCompromised:    prometheus.NewDesc("surveys_compromised", "", nil, labels),
		SectionsMismatched:    prometheus.NewDesc("sections_mismatched", "", nil, labels),
		SourcesMissing:        prometheus.NewDesc("sources_missing", "", nil, labels),
		ChainBreaks:           prometheus.NewDesc("chain_breaks", "", nil, labels),
		SweepsFinished:        prometheus.NewDesc("sweeps_finished", "", nil, labels),
		VerdictsPersisted:     prometheus.NewDesc("verdicts_persisted", "", nil, labels),
		VerifierStoreError:    prometheus.NewDesc("verifier_store_error", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.BlocksCreated
	ch <- self.SectionsUpdated
	ch <- self.TimelineEventsWritten
	ch <- self.CanonicalizationError
	ch <- self.StoreTimeoutError
	ch <- self.StoreConflictError
	ch <- self.StoreOtherError
	ch <- self.SurveysVerified
	ch <- self.SurveysValid
	ch <- self.SurveysCompromised
	ch <- self.SectionsMismatched
	ch <- self.SourcesMissing
	ch <- self.ChainBreaks
	ch <- self.SweepsFinished
	ch <- self.VerdictsPersisted
	ch <- self.VerifierStoreError
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ledger := self.monitor.Report.Ledger
	verifier := self.monitor.Report.Verifier

	ch <- prometheus.MustNewConstMetric(self.BlocksCreated, prometheus.CounterValue, float64(ledger.State.BlocksCreated.Load()))
	ch <- prometheus.MustNewConstMetric(self.SectionsUpdated, prometheus.CounterValue, float64(ledger.State.SectionsUpdated.Load()))
	ch <- prometheus.MustNewConstMetric(self.TimelineEventsWritten, prometheus.CounterValue, float64(ledger.State.TimelineEventsWritten.Load()))
	ch <- prometheus.MustNewConstMetric(self.CanonicalizationError, prometheus.CounterValue, float64(ledger.Errors.CanonicalizationError.Load()))
	ch <- prometheus.MustNewConstMetric(self.StoreTimeoutError, prometheus.CounterValue, float64(ledger.Errors.StoreTimeoutError.Load()))
	ch <- prometheus.MustNewConstMetric(self.StoreConflictError, prometheus.CounterValue, float64(ledger.Errors.StoreConflictError.Load()))
	ch <- prometheus.MustNewConstMetric(self.StoreOtherError, prometheus.CounterValue, float64(ledger.Errors.StoreOtherError.Load()))
	ch <- prometheus.MustNewConstMetric(self.SurveysVerified, prometheus.CounterValue, float64(verifier.State.SurveysVerified.Load()))
	ch <- prometheus.MustNewConstMetric(self.SurveysValid, prometheus.CounterValue, float64(verifier.State.SurveysValid.Load()))
	ch <- prometheus.MustNewConstMetric(self.SurveysCompromised, prometheus.CounterValue, float64(verifier.State.SurveysCompromised.Load()))
	ch <- prometheus.MustNewConstMetric(self.SectionsMismatched, prometheus.CounterValue, float64(verifier.State.SectionsMismatched.Load()))
	ch <- prometheus.MustNewConstMetric(self.SourcesMissing, prometheus.CounterValue, float64(verifier.State.SourcesMissing.Load()))
	ch <- prometheus.MustNewConstMetric(self.ChainBreaks, prometheus.CounterValue, float64(verifier.State.ChainBreaks.Load()))
	ch <- prometheus.MustNewConstMetric(self.SweepsFinished, prometheus.CounterValue, float64(verifier.State.SweepsFinished.Load()))
	ch <- prometheus.MustNewConstMetric(self.VerdictsPersisted, prometheus.CounterValue, float64(verifier.State.VerdictsPersisted.Load()))
	ch <- prometheus.MustNewConstMetric(self.VerifierStoreError, prometheus.CounterValue, float64(verifier.Errors.StoreError.Load()))
}
