package cmd

import (
	"github.com/saral-bhoomi/ledger/src/gateway"
	"github.com/saral-bhoomi/ledger/src/utils/monitoring"
	monitor_ledger "github.com/saral-bhoomi/ledger/src/utils/monitoring/ledger"
	"github.com/saral-bhoomi/ledger/src/verify"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger REST API and run periodic integrity sweeps",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		monitor := monitor_ledger.NewMonitor()

		monitoringServer := monitoring.NewServer(conf).
			WithMonitor(monitor)

		gatewayController, err := gateway.NewController(conf, monitor)
		if err != nil {
			return
		}

		verifyController, err := verify.NewController(conf, monitor)
		if err != nil {
			return
		}

		err = monitoringServer.Start()
		if err != nil {
			return
		}
		err = gatewayController.Start()
		if err != nil {
			return
		}
		err = verifyController.Start()
		if err != nil {
			return
		}

		select {
		case <-gatewayController.CtxRunning.Done():
		case <-verifyController.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		verifyController.StopWait()
		gatewayController.StopWait()
		monitoringServer.StopWait()

		return
	},
}
