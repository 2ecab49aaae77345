package sections

import (
	"context"
	"errors"
	"fmt"

	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"
	"github.com/saral-bhoomi/ledger/src/utils/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reads live section snapshots from the tables maintained by the
// ingestion pipeline. The ledger never writes them.
type DbSource struct {
	config *config.Config
	log    *logrus.Entry
	db     *gorm.DB
}

func NewDbSource(config *config.Config) (self *DbSource) {
	self = new(DbSource)
	self.log = logger.NewSublogger("section-source")
	self.config = config
	return
}

func (self *DbSource) WithDB(db *gorm.DB) *DbSource {
	self.db = db
	return self
}

func (self *DbSource) GetCurrentSectionData(ctx context.Context, surveyNumber string, key model.SectionKey) (data model.Document, err error) {
	table, ok := model.SectionTables[key]
	if !ok {
		err = fmt.Errorf("unknown section key %q", key)
		return
	}

	var snapshot model.SectionSnapshot
	err = self.db.WithContext(ctx).
		Table(table).
		Where("survey_number = ?", surveyNumber).
		First(&snapshot).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
		return
	}
	if err != nil {
		self.log.WithError(err).
			WithField("survey_number", surveyNumber).
			WithField("section", key).
			Error("Failed to read live section data")
		return
	}

	data = snapshot.Data
	return
}
