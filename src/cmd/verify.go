package cmd

import (
	"encoding/json"
	"fmt"

	"go.uber.org/ratelimit"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	monitor_ledger "github.com/saral-bhoomi/ledger/src/utils/monitoring/ledger"
	"github.com/saral-bhoomi/ledger/src/verify"

	"github.com/spf13/cobra"
)

var surveyNumber string

func init() {
	verifyCmd.Flags().StringVar(&surveyNumber, "survey", "", "verify a single survey number instead of the whole ledger")
	RootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify ledger integrity once and exit",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		monitor := monitor_ledger.NewMonitor()

		db, err := model.NewConnection(applicationCtx, conf, "verify-cmd")
		if err != nil {
			return
		}

		sourceDb, err := model.NewReadOnlyConnection(applicationCtx, conf, "verify-cmd-source")
		if err != nil {
			return
		}

		store := ledger.NewStore(conf).WithDB(db)

		verifier := verify.NewVerifier(conf).
			WithStorage(store).
			WithSource(sections.NewDbSource(conf).WithDB(sourceDb)).
			WithLimiter(ratelimit.New(conf.Verifier.SourceRateLimit)).
			WithMonitor(monitor)

		if surveyNumber != "" {
			verdict, err := verifier.Verify(applicationCtx, surveyNumber)
			if err != nil {
				return err
			}
			return printVerdicts(store, []*verify.Verdict{verdict})
		}

		var verdicts []*verify.Verdict
		var afterId int64
		for {
			blocks, err := store.ScanBlocks(applicationCtx, afterId, conf.Ledger.ScanBatchSize)
			if err != nil {
				return err
			}
			if len(blocks) == 0 {
				break
			}
			for _, block := range blocks {
				verdict, err := verifier.Verify(applicationCtx, block.SurveyNumber)
				if err != nil {
					return err
				}
				verdicts = append(verdicts, verdict)
			}
			afterId = blocks[len(blocks)-1].ID
		}

		return printVerdicts(store, verdicts)
	},
}

func printVerdicts(store ledger.Storage, verdicts []*verify.Verdict) (err error) {
	for _, verdict := range verdicts {
		if verdict.Status == verify.StatusNotOnLedger {
			continue
		}
		err = store.UpdateVerdict(applicationCtx, verdict.SurveyNumber, verdict.IsValid, verdict.ValidationErrors())
		if err != nil {
			return
		}
	}

	out, err := json.MarshalIndent(verdicts, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
	return nil
}
