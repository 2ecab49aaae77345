package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saral-bhoomi/ledger/src/gateway/request"
	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/verify"
)

func (self *Server) onRecord(c *gin.Context) {
	var in = new(request.Record)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := model.SectionKey(in.Section)
	if !key.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown section: " + in.Section})
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	// Officer assignments live in the case-management backend,
	// fill in the project when the caller didn't send one
	if in.ProjectId == "" && in.OfficerId != "" && self.officers != nil {
		officer, err := self.officers.GetOfficerContext(ctx, in.OfficerId)
		if err == nil {
			in.ProjectId = officer.ProjectId
		} else {
			self.Log.WithError(err).
				WithField("officer_id", in.OfficerId).
				Warn("Proceeding without officer context")
		}
	}

	block, err := self.builder.RegisterOrUpdate(ctx, in.SurveyNumber, key, model.Document(in.Data), in.OfficerId, in.ProjectId, in.Remarks)
	if err != nil {
		self.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, block)
}

func (self *Server) onGetBlock(c *gin.Context) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	block, err := self.storage.GetBlock(ctx, c.Param("survey_number"))
	if err != nil {
		self.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, block)
}

func (self *Server) onGetTimeline(c *gin.Context) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	surveyNumber := c.Param("survey_number")

	// 404 for unknown surveys, an empty timeline would be misleading
	_, err := self.storage.GetBlock(ctx, surveyNumber)
	if err != nil {
		self.writeError(c, err)
		return
	}

	events, err := self.recorder.List(ctx, surveyNumber)
	if err != nil {
		self.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"survey_number": surveyNumber, "events": events})
}

func (self *Server) onVerifySurvey(c *gin.Context) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	verdict, err := self.verifier.Verify(ctx, c.Param("survey_number"))
	if err != nil {
		self.writeError(c, err)
		return
	}

	self.persistVerdict(c, verdict)

	c.JSON(http.StatusOK, verdict)
}

func (self *Server) onBulkVerify(c *gin.Context) {
	var in = new(request.BulkVerify)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	var verdicts []*verify.Verdict
	if len(in.SurveyNumbers) > 0 {
		for _, surveyNumber := range in.SurveyNumbers {
			verdict, err := self.verifier.Verify(ctx, surveyNumber)
			if err != nil {
				self.writeError(c, err)
				return
			}
			verdicts = append(verdicts, verdict)
		}
	} else {
		verdicts, err = self.verifyAll(c, in.ProjectId)
		if err != nil {
			self.writeError(c, err)
			return
		}
	}

	for _, verdict := range verdicts {
		self.persistVerdict(c, verdict)
	}

	valid := 0
	for _, verdict := range verdicts {
		if verdict.IsValid {
			valid++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(verdicts),
		"valid":    valid,
		"invalid":  len(verdicts) - valid,
		"verdicts": verdicts,
	})
}

// Verifies every block, optionally narrowed to one project
func (self *Server) verifyAll(c *gin.Context, projectId string) (verdicts []*verify.Verdict, err error) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	var afterId int64
	for {
		blocks, err := self.storage.ScanBlocks(ctx, afterId, self.Config.Ledger.ScanBatchSize)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			return verdicts, nil
		}

		for _, block := range blocks {
			if projectId != "" && block.ProjectId != projectId {
				continue
			}
			verdict, err := self.verifier.Verify(ctx, block.SurveyNumber)
			if err != nil {
				return nil, err
			}
			verdicts = append(verdicts, verdict)
		}

		afterId = blocks[len(blocks)-1].ID
	}
}

func (self *Server) persistVerdict(c *gin.Context, verdict *verify.Verdict) {
	if verdict.Status == verify.StatusNotOnLedger {
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	err := self.storage.UpdateVerdict(ctx, verdict.SurveyNumber, verdict.IsValid, verdict.ValidationErrors())
	if err != nil {
		// The verdict is still returned to the caller
		self.monitor.GetReport().Verifier.Errors.StoreError.Inc()
		self.Log.WithError(err).
			WithField("survey_number", verdict.SurveyNumber).
			Error("Failed to persist verdict")
		return
	}
	self.monitor.GetReport().Verifier.State.VerdictsPersisted.Inc()
}

func (self *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrStoreTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
