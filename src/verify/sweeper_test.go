package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/model"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"testing"
)

func TestSweeperTestSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

type SweeperTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
}

func (s *SweeperTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()

	// Small batches to exercise the paging
	s.config.Ledger.ScanBatchSize = 2
}

func (s *SweeperTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *SweeperTestSuite) TestSweepVerifiesWholeLedger() {
	storage := newFakeStorage()
	source := newFakeSource()

	recorder := ledger.NewRecorder(s.config).WithStorage(storage)
	builder := ledger.NewBuilder(s.config).WithStorage(storage).WithRecorder(recorder)

	for i := 0; i < 5; i++ {
		surveyNumber := fmt.Sprintf("67/%d", i)
		data := model.Document{"measured_area": 0.013 + float64(i)}
		_, err := builder.CreateBlock(s.ctx, surveyNumber, model.SectionJMR, data, "OFF1", "PRJ1", "")
		require.Nil(s.T(), err)
		source.set(surveyNumber, model.SectionJMR, data)
	}

	// One survey drifts from its live record
	source.set("67/3", model.SectionJMR, model.Document{"measured_area": 99.0})

	verifier := NewVerifier(s.config).WithStorage(storage).WithSource(source)
	sweeper := NewSweeper(s.config).WithStorage(storage).WithVerifier(verifier)

	err := sweeper.Start()
	require.Nil(s.T(), err)
	defer sweeper.StopWait()

	sweeper.Trigger()

	verdicts := make(map[string]*Verdict)
	timeout := time.After(10 * time.Second)
	for len(verdicts) < 5 {
		select {
		case verdict := <-sweeper.Output:
			verdicts[verdict.SurveyNumber] = verdict
		case <-timeout:
			s.T().Fatal("sweep did not produce all verdicts in time")
		}
	}

	for surveyNumber, verdict := range verdicts {
		if surveyNumber == "67/3" {
			require.False(s.T(), verdict.IsValid)
			require.Equal(s.T(), StatusCompromised, verdict.Status)
		} else {
			require.True(s.T(), verdict.IsValid)
			require.Equal(s.T(), StatusVerified, verdict.Status)
		}
	}
}
