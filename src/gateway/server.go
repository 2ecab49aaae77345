package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teivah/onecontext"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	"github.com/saral-bhoomi/ledger/src/utils/officers"
	"github.com/saral-bhoomi/ledger/src/utils/task"
	"github.com/saral-bhoomi/ledger/src/verify"
)

// Rest API server, serves the ledger endpoints
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	storage  ledger.Storage
	builder  *ledger.Builder
	recorder *ledger.Recorder
	verifier *verify.Verifier
	officers *officers.Client
	monitor  monitoring.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "gateway-server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	self.Router = gin.New()

	self.httpServer = &http.Server{
		Addr:    self.Config.Gateway.ListenAddress,
		Handler: self.Router,
	}

	v1 := self.Router.Group("v1")
	{
		v1.POST("ledger", self.onRecord)
		v1.GET("ledger/:survey_number", self.onGetBlock)
		v1.GET("ledger/:survey_number/timeline", self.onGetTimeline)
		v1.GET("ledger/:survey_number/verify", self.onVerifySurvey)
		v1.POST("verify", self.onBulkVerify)
	}

	return
}

func (self *Server) WithStorage(storage ledger.Storage) *Server {
	self.storage = storage
	return self
}

func (self *Server) WithBuilder(builder *ledger.Builder) *Server {
	self.builder = builder
	return self
}

func (self *Server) WithRecorder(recorder *ledger.Recorder) *Server {
	self.recorder = recorder
	return self
}

func (self *Server) WithVerifier(verifier *verify.Verifier) *Server {
	self.verifier = verifier
	return self
}

func (self *Server) WithOfficers(client *officers.Client) *Server {
	self.officers = client
	return self
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

// Request context bound both to the HTTP request and the task lifecycle
func (self *Server) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx, _ := onecontext.Merge(self.Ctx, c.Request.Context())
	return context.WithTimeout(ctx, self.Config.Gateway.ServerRequestTimeout)
}

func (self *Server) run() (err error) {
	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start gateway server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown gateway server")
		return
	}
}
