package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/canonical"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"

	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

// Verifier recomputes hashes over live collaborator data and compares
// them against the stored chain. Domain findings (mismatch, missing
// source, not on ledger) come back inside the verdict, only structural
// failures (store timeout, canonicalization) come back as errors.
type Verifier struct {
	config  *config.Config
	log     *logrus.Entry
	storage ledger.Storage
	source  sections.Source
	monitor monitoring.Monitor

	// Bounds live-source reads during bulk sweeps
	limiter ratelimit.Limiter
}

func NewVerifier(config *config.Config) (self *Verifier) {
	self = new(Verifier)
	self.log = logger.NewSublogger("verifier")
	self.config = config
	return
}

func (self *Verifier) WithStorage(storage ledger.Storage) *Verifier {
	self.storage = storage
	return self
}

func (self *Verifier) WithSource(source sections.Source) *Verifier {
	self.source = source
	return self
}

func (self *Verifier) WithMonitor(monitor monitoring.Monitor) *Verifier {
	self.monitor = monitor
	return self
}

func (self *Verifier) WithLimiter(limiter ratelimit.Limiter) *Verifier {
	self.limiter = limiter
	return self
}

// Verify runs the whole procedure for one survey: fetch the stored
// block, rehydrate each recorded section from its collaborator,
// recompute and compare hashes, recompute the aggregate hash and walk
// the timeline chain. Cancelling the context aborts at the next section
// boundary and the partial verdict is discarded.
func (self *Verifier) Verify(ctx context.Context, surveyNumber string) (verdict *Verdict, err error) {
	block, err := self.storage.GetBlock(ctx, surveyNumber)
	if errors.Is(err, ledger.ErrNotFound) {
		return &Verdict{
			SurveyNumber:     surveyNumber,
			Status:           StatusNotOnLedger,
			IsValid:          false,
			Reason:           "survey is not on the ledger",
			TimelineBrokenAt: -1,
			CheckedAt:        time.Now().UTC(),
		}, nil
	}
	if err != nil {
		if self.monitor != nil {
			self.monitor.GetReport().Verifier.Errors.StoreError.Inc()
		}
		return nil, err
	}

	verdict = &Verdict{
		SurveyNumber:     surveyNumber,
		Sections:         make(map[model.SectionKey]*SectionVerdict, len(model.SectionKeys)),
		BlockHashValid:   true,
		TimelineValid:    true,
		TimelineBrokenAt: -1,
		CheckedAt:        time.Now().UTC(),
	}

	// Recomputed section hashes feed the aggregate check below
	recomputedHashes := make(map[string]any, len(model.SectionKeys))

	for _, key := range model.SectionKeys {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		stored := block.Sections[key]
		if stored == nil || stored.Status == model.SectionStatusNotCreated {
			// Vacuously valid, excluded from the mismatch count
			verdict.Sections[key] = &SectionVerdict{
				IsValid:          true,
				ComparisonSource: ComparisonNotCreated,
			}
			recomputedHashes[string(key)] = nil
			continue
		}

		verdict.Sections[key] = self.verifySection(ctx, surveyNumber, key, stored, recomputedHashes)
	}

	err = self.verifyAggregate(block, recomputedHashes, verdict)
	if err != nil {
		return nil, err
	}

	err = self.verifyTimeline(ctx, surveyNumber, verdict)
	if err != nil {
		return nil, err
	}

	self.conclude(verdict)
	return
}

func (self *Verifier) verifySection(ctx context.Context, surveyNumber string, key model.SectionKey, stored *model.Section, recomputedHashes map[string]any) (section *SectionVerdict) {
	if self.limiter != nil {
		self.limiter.Take()
	}

	live, err := self.source.GetCurrentSectionData(ctx, surveyNumber, key)
	if errors.Is(err, sections.ErrNotFound) {
		// The live record vanished. Not the same finding as a mismatch.
		if self.monitor != nil {
			self.monitor.GetReport().Verifier.State.SourcesMissing.Inc()
		}
		recomputedHashes[string(key)] = nil
		return &SectionVerdict{
			IsValid:          false,
			StoredHash:       stored.Hash,
			ComparisonSource: ComparisonSourceMissing,
			LastUpdated:      stored.LastUpdated,
			Reason:           "source missing",
		}
	}
	if err != nil {
		if self.monitor != nil {
			self.monitor.GetReport().Verifier.Errors.SourceError.Inc()
		}
		recomputedHashes[string(key)] = nil
		return &SectionVerdict{
			IsValid:          false,
			StoredHash:       stored.Hash,
			ComparisonSource: ComparisonSourceMissing,
			LastUpdated:      stored.LastUpdated,
			Reason:           "source unavailable: " + err.Error(),
		}
	}

	currentHash, err := canonical.Digest(map[string]any(live))
	if err != nil {
		recomputedHashes[string(key)] = nil
		return &SectionVerdict{
			IsValid:          false,
			StoredHash:       stored.Hash,
			ComparisonSource: ComparisonSourceMissing,
			LastUpdated:      stored.LastUpdated,
			Reason:           "live data cannot be hashed: " + err.Error(),
		}
	}

	recomputedHashes[string(key)] = currentHash

	if currentHash != stored.Hash {
		if self.monitor != nil {
			self.monitor.GetReport().Verifier.State.SectionsMismatched.Inc()
		}
		return &SectionVerdict{
			IsValid:          false,
			StoredHash:       stored.Hash,
			CurrentHash:      currentHash,
			ComparisonSource: ComparisonMismatch,
			LastUpdated:      stored.LastUpdated,
			Reason:           "hash mismatch",
		}
	}

	return &SectionVerdict{
		IsValid:          true,
		StoredHash:       stored.Hash,
		CurrentHash:      currentHash,
		ComparisonSource: ComparisonLiveDb,
		LastUpdated:      stored.LastUpdated,
	}
}

// The aggregate hash is recomputed from the stored identity fields plus
// the freshly recomputed section hashes and compared to the stored one
func (self *Verifier) verifyAggregate(block *model.Block, recomputedHashes map[string]any, verdict *Verdict) (err error) {
	expected, err := canonical.Digest(block.HeaderWith(recomputedHashes))
	if err != nil {
		return err
	}
	verdict.BlockHashValid = expected == block.CurrentHash
	return
}

func (self *Verifier) verifyTimeline(ctx context.Context, surveyNumber string, verdict *Verdict) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	events, err := self.storage.ListEvents(ctx, surveyNumber)
	if err != nil {
		if self.monitor != nil {
			self.monitor.GetReport().Verifier.Errors.StoreError.Inc()
		}
		return err
	}

	brokenAt := ledger.VerifyChain(events)
	verdict.TimelineValid = brokenAt < 0
	verdict.TimelineBrokenAt = brokenAt
	if brokenAt >= 0 && self.monitor != nil {
		self.monitor.GetReport().Verifier.State.ChainBreaks.Inc()
	}
	return nil
}

func (self *Verifier) conclude(verdict *Verdict) {
	verdict.IsValid = verdict.BlockHashValid && verdict.TimelineValid
	var reason string

	for _, key := range model.SectionKeys {
		section := verdict.Sections[key]
		if section == nil || section.IsValid {
			continue
		}
		verdict.IsValid = false
		if reason == "" {
			reason = fmt.Sprintf("%s section: %s", key, section.Reason)
		}
	}

	if reason == "" && !verdict.BlockHashValid {
		reason = "block aggregate hash mismatch"
	}
	if reason == "" && !verdict.TimelineValid {
		reason = fmt.Sprintf("timeline chain broken at event %d", verdict.TimelineBrokenAt)
	}

	if verdict.IsValid {
		verdict.Status = StatusVerified
	} else {
		verdict.Status = StatusCompromised
		verdict.Reason = reason
	}

	if self.monitor != nil {
		report := self.monitor.GetReport().Verifier
		report.State.SurveysVerified.Inc()
		if verdict.IsValid {
			report.State.SurveysValid.Inc()
		} else {
			report.State.SurveysCompromised.Inc()
		}
	}
}
