package gateway

import (
	"go.uber.org/ratelimit"

	"github.com/saral-bhoomi/ledger/src/ledger"
	"github.com/saral-bhoomi/ledger/src/sections"
	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/model"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	"github.com/saral-bhoomi/ledger/src/utils/officers"
	"github.com/saral-bhoomi/ledger/src/utils/task"
	"github.com/saral-bhoomi/ledger/src/verify"
)

// Controller wires the REST flow: gin server -> builder/recorder -> database,
// plus the on-demand verification endpoints.
type Controller struct {
	*task.Task
}

func NewController(config *config.Config, monitor monitoring.Monitor) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "gateway-controller")

	db, err := model.NewConnection(self.Ctx, config, "gateway")
	if err != nil {
		return
	}

	sourceDb, err := model.NewReadOnlyConnection(self.Ctx, config, "gateway-source")
	if err != nil {
		return
	}

	store := ledger.NewStore(config).WithDB(db)

	recorder := ledger.NewRecorder(config).
		WithStorage(store).
		WithMonitor(monitor)

	builder := ledger.NewBuilder(config).
		WithStorage(store).
		WithRecorder(recorder).
		WithMonitor(monitor)

	verifier := verify.NewVerifier(config).
		WithStorage(store).
		WithSource(sections.NewDbSource(config).WithDB(sourceDb)).
		WithLimiter(ratelimit.New(config.Verifier.SourceRateLimit)).
		WithMonitor(monitor)

	server := NewServer(config).
		WithStorage(store).
		WithBuilder(builder).
		WithRecorder(recorder).
		WithVerifier(verifier).
		WithOfficers(officers.NewClient(config)).
		WithMonitor(monitor)

	self.Task = self.Task.WithSubtask(server.Task)

	return
}
