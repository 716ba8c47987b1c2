package app

import (
	"database/sql"

	"go.uber.org/dig"

	"github.com/fancybank/bankcore/config"
	"github.com/fancybank/bankcore/pkg/accounts"
	"github.com/fancybank/bankcore/pkg/bank"
	"github.com/fancybank/bankcore/pkg/dal"
	"github.com/fancybank/bankcore/pkg/detect"
	"github.com/fancybank/bankcore/pkg/engine"
	"github.com/fancybank/bankcore/pkg/txlog"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// BootstrapServices setup di container with all app services
func BootstrapServices(appCfg *config.Config) Injector {
	c := dig.New()

	c.Provide(func() (*sql.DB, error) {
		return sql.Open(appCfg.Storage.Driver, appCfg.Storage.DSN)
	})

	c.Provide(func(db *sql.DB) (dal.Storage, error) {
		return dal.NewSQLStorage(dal.WithSQLDb(db))
	})

	c.Provide(func(storage dal.Storage) accounts.Service {
		return accounts.NewService(accounts.WithStorage(storage))
	})

	c.Provide(func() *txlog.Store {
		return txlog.NewStore(appCfg.Ledger.Dir)
	})

	c.Provide(func(accountsSvc accounts.Service) engine.Engine {
		return engine.NewEngine(engine.WithAccounts(accountsSvc))
	})

	c.Provide(func(e engine.Engine, accountsSvc accounts.Service, storage dal.Storage, ledgers *txlog.Store) bank.Service {
		return bank.NewService(
			bank.WithEngine(e),
			bank.WithAccounts(accountsSvc),
			bank.WithStorage(storage),
			bank.WithLedgers(ledgers),
		)
	})

	c.Provide(func() detect.ThresholdsStore {
		return detect.NewFSThresholdsStore(appCfg.Detect.ThresholdsPath)
	})

	c.Provide(func(accountsSvc accounts.Service, ledgers *txlog.Store) detect.Detector {
		return detect.NewDetector(
			detect.WithAccounts(accountsSvc),
			detect.WithLedgers(ledgers),
		)
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
