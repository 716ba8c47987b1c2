package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fancybank/bankcore/config"
	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/app"
	"github.com/fancybank/bankcore/pkg/bank"
	"github.com/fancybank/bankcore/pkg/diag"
	"github.com/fancybank/bankcore/pkg/txlog"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	cmd     string
	account string
	pin     string
	amount  float64
	admin   bool
}

func init() {
	flag.StringVar(&cliArgs.cmd, "cmd", "", "Command to run. Available commands: register, login, deposit, withdraw, balance, history, promote")
	flag.StringVar(&cliArgs.account, "account", "", "Account id")
	flag.StringVar(&cliArgs.pin, "pin", "", "Account pin (register, login)")
	flag.Float64Var(&cliArgs.amount, "amount", 0, "Amount (deposit, withdraw)")
	flag.BoolVar(&cliArgs.admin, "admin", false, "Register account with the admin flag")

	flag.Parse()
}

func showHelpAndExit() {
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	if cliArgs.cmd == "" || cliArgs.account == "" {
		showHelpAndExit()
	}

	appCfg := config.Load()

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level)
	})

	injector := app.BootstrapServices(appCfg)
	ctx := context.Background()

	var err error
	switch cliArgs.cmd {
	case "register":
		err = injector(func(svc accounts.Service) error {
			return svc.Register(ctx, cliArgs.account, cliArgs.pin, cliArgs.admin)
		})
	case "login":
		err = injector(func(svc accounts.Service) error {
			ok, err := svc.Authenticate(ctx, cliArgs.account, cliArgs.pin)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("Access denied for %v", cliArgs.account)
			}
			fmt.Println("Welcome,", cliArgs.account)
			return nil
		})
	case "deposit":
		err = injector(func(svc bank.Service) error {
			newBalance, err := svc.Deposit(ctx, cliArgs.account, cliArgs.amount)
			if err != nil {
				return err
			}
			fmt.Println("New balance: $" + txlog.FormatAmount(newBalance))
			return nil
		})
	case "withdraw":
		err = injector(func(svc bank.Service) error {
			newBalance, err := svc.Withdraw(ctx, cliArgs.account, cliArgs.amount)
			if err != nil {
				return err
			}
			fmt.Println("New balance: $" + txlog.FormatAmount(newBalance))
			return nil
		})
	case "balance":
		err = injector(func(svc bank.Service) error {
			balance, err := svc.GetBalance(ctx, cliArgs.account)
			if err != nil {
				return err
			}
			fmt.Println("Current balance: $" + txlog.FormatAmount(balance))
			return nil
		})
	case "history":
		err = injector(func(svc bank.Service) error {
			records, err := svc.History(ctx, cliArgs.account)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Println(txlog.EncodeLine(&rec))
			}
			return nil
		})
	case "promote":
		err = injector(func(svc accounts.Service) error {
			return svc.Promote(ctx, cliArgs.account)
		})
	default:
		showHelpAndExit()
	}

	if err != nil {
		logger.WithError(err).Error(ctx, "Command %v failed", cliArgs.cmd)
		os.Exit(1)
	}
}
