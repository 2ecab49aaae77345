package sections

import (
	"context"
	"errors"

	"github.com/saral-bhoomi/ledger/src/utils/model"
)

// Returned when the owning subsystem no longer has a live record for the
// section. Verification reports this as "source missing", distinct from a
// hash mismatch.
var ErrNotFound = errors.New("live section record not found")

// Source provides the current live snapshot of a section from the
// subsystem that owns it (JMR store, notice store, payment store, award
// store, landowner store).
type Source interface {
	GetCurrentSectionData(ctx context.Context, surveyNumber string, key model.SectionKey) (model.Document, error)
}
