// Package app assembles the bot: storage, onboarding, routing, and the
// notification scheduler, exposed through the shared runner contract.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	botconfig "github.com/m3rciful/calorico/bot/config"
	"github.com/m3rciful/calorico/bot/onboarding"
	"github.com/m3rciful/calorico/bot/routes"
	"github.com/m3rciful/calorico/bot/scheduler"
	"github.com/m3rciful/calorico/bot/services"
	"github.com/m3rciful/calorico/bot/store"
	"github.com/m3rciful/calorico/core/bootstrap"
	corecmd "github.com/m3rciful/calorico/core/cmd"
	tgcore "github.com/m3rciful/calorico/core/telegram"
	"github.com/m3rciful/calorico/core/telegram/router"
	"github.com/m3rciful/calorico/core/telegram/state"
)

// App is the composed bot application.
type App struct {
	cfg      *botconfig.Config
	db       *sqlx.DB
	users    *store.Users
	onb      *onboarding.Onboarding
	registry *tgcore.Registry
	sweeper  *scheduler.Sweeper
}

// LoadConfig adapts the bot config loader to the runner contract.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return botconfig.Load(path)
}

// Bootstrap initializes infrastructure and wires the application graph.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*botconfig.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	users := store.NewUsers(res.DB)
	sessions := state.NewMemoryManager()

	onb, err := onboarding.New(sessions, users, services.BasicNutrition{})
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	handlers := NewHandlers(users, onb, services.StaticMenus{}, services.StaticReports{}, services.EchoFreeText{})

	reg := tgcore.NewRegistry()
	if err := routes.Register(reg, routes.Handlers{
		Start:           handlers.Start,
		Help:            handlers.Help,
		Menu:            handlers.Menu,
		ResetAsk:        handlers.ResetAsk,
		MainMenu:        handlers.MainMenu,
		Summary:         handlers.Summary,
		HelpAction:      handlers.HelpAction,
		PersonalDetails: handlers.PersonalDetails,
		FreeText:        handlers.FreeText,
		Report:          handlers.Report,
		Reset:           handlers.Reset,
	}); err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		db:       res.DB,
		users:    users,
		onb:      onb,
		registry: reg,
	}, nil
}

// TelegramRunOptions builds the runtime wiring for the shared runner.
func (a *App) TelegramRunOptions() (tgcore.RunOptions, error) {
	core := a.cfg.CoreConfig()
	machine := a.onb.Machine()

	rts := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})
	rts = append(rts, router.TextRoutes(machine, a.registry, router.TextOptions{})...)
	rts = append(rts, router.CallbackRoute(machine, a.registry, router.CallbackOptions{}))

	return tgcore.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tgcore.DefaultMiddlewares(core, nil),
		Routes:      rts,
		OnStart: func(ctx context.Context, rt tgcore.Runtime) error {
			a.sweeper = scheduler.New(a.users, newBotMessenger(rt.Bot), core.Scheduler)
			a.sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt tgcore.Runtime) error {
			if a.sweeper != nil {
				a.sweeper.Stop()
			}
			return a.db.Close()
		},
	}, nil
}
