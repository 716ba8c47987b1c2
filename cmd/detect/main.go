package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	uuid "github.com/satori/go.uuid"

	"github.com/fancybank/bankcore/config"
	"github.com/fancybank/bankcore/pkg/app"
	"github.com/fancybank/bankcore/pkg/detect"
	"github.com/fancybank/bankcore/pkg/diag"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd             string
	largeDeposit    float64
	largeWithdrawal float64
	frequentCount   int
	frequentHours   int
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "", "Command to run. Available commands: run, show-thresholds, set-thresholds")
	flag.Float64Var(&cliArgs.largeDeposit, "large-deposit", 0, "Large deposit threshold (set-thresholds)")
	flag.Float64Var(&cliArgs.largeWithdrawal, "large-withdrawal", 0, "Large withdrawal threshold (set-thresholds)")
	flag.IntVar(&cliArgs.frequentCount, "frequent-count", 0, "Frequent transactions count (set-thresholds)")
	flag.IntVar(&cliArgs.frequentHours, "frequent-hours", 0, "Frequent transactions window, hours (set-thresholds)")

	flag.Parse()
}

func showHelpAndExit() {
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	if cliArgs.cmd == "" {
		showHelpAndExit()
	}

	appCfg := config.Load()

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level)
	})

	injector := app.BootstrapServices(appCfg)
	ctx := diag.ContextWithOperationID(context.Background(), uuid.NewV4().String())

	var err error
	switch cliArgs.cmd {
	case "run":
		err = injector(func(detector detect.Detector, store detect.ThresholdsStore) error {
			cfg, err := store.Load(ctx)
			if err != nil {
				return err
			}
			alerts, err := detector.Run(ctx, cfg)
			if err != nil {
				return err
			}
			for _, alert := range alerts {
				fmt.Printf("ALERT: %v\n", alert.Message)
			}
			return nil
		})
	case "show-thresholds":
		err = injector(func(store detect.ThresholdsStore) error {
			cfg, err := store.Load(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", cfg)
			return nil
		})
	case "set-thresholds":
		err = injector(func(store detect.ThresholdsStore) error {
			cfg, err := store.Load(ctx)
			if err != nil {
				return err
			}
			if cliArgs.largeDeposit > 0 {
				cfg.LargeDeposit = cliArgs.largeDeposit
			}
			if cliArgs.largeWithdrawal > 0 {
				cfg.LargeWithdrawal = cliArgs.largeWithdrawal
			}
			if cliArgs.frequentCount > 0 {
				cfg.FrequentCount = cliArgs.frequentCount
			}
			if cliArgs.frequentHours > 0 {
				cfg.FrequentWindowHours = cliArgs.frequentHours
			}
			return store.Save(ctx, cfg)
		})
	default:
		showHelpAndExit()
	}

	if err != nil {
		logger.WithError(err).Error(ctx, "Command %v failed", cliArgs.cmd)
		os.Exit(1)
	}
}
