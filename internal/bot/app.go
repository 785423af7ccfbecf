// Package bot wires the donor workflow and store into Telegram handlers.
package bot

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/bloodlife/core/config"
	tg "github.com/m3rciful/bloodlife/core/telegram"
	"github.com/m3rciful/bloodlife/core/telegram/helpers"
	"github.com/m3rciful/bloodlife/core/telegram/router"
	"github.com/m3rciful/bloodlife/internal/store"
	"github.com/m3rciful/bloodlife/internal/workflow"

	tele "gopkg.in/telebot.v4"
)

// App holds the assembled application: store, workflow manager, and the
// handler registry. It is built once at startup and shared by all handlers.
type App struct {
	cfg      *coreconfig.Config
	store    store.Store
	manager  *workflow.Manager
	registry *tg.Registry

	// searchPending marks users who pressed Search Donors and owe us a
	// location share before the listing is sent. The mark is consumed by
	// the share and dropped by any other menu action, so it cannot fire
	// on an unrelated location sent later.
	searchMu      sync.Mutex
	searchPending map[int64]bool
}

func (a *App) markSearchPending(userID int64) {
	a.searchMu.Lock()
	a.searchPending[userID] = true
	a.searchMu.Unlock()
}

// takeSearchPending consumes the mark, reporting whether it was set.
func (a *App) takeSearchPending(userID int64) bool {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	pending := a.searchPending[userID]
	delete(a.searchPending, userID)
	return pending
}

func (a *App) clearSearchPending(userID int64) {
	a.searchMu.Lock()
	delete(a.searchPending, userID)
	a.searchMu.Unlock()
}

// New builds the application for the configured storage backend. db must be
// non-nil when the postgres backend is selected and is ignored otherwise.
func New(cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	st, err := buildStore(cfg, db)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:           cfg,
		store:         st,
		manager:       workflow.NewManager(st),
		registry:      tg.NewRegistry(),
		searchPending: make(map[int64]bool),
	}
	app.registerHandlers()
	return app, nil
}

func buildStore(cfg *coreconfig.Config, db *sqlx.DB) (store.Store, error) {
	switch cfg.Storage.Backend {
	case coreconfig.BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("bot: postgres backend requires a database connection")
		}
		return store.NewPGStore(db), nil
	default:
		return store.NewFileStore(cfg.Storage.Path)
	}
}

// Registry exposes the handler registry for command menu registration.
func (a *App) Registry() *tg.Registry {
	return a.registry
}

// Routes assembles all bot routes: FSM-first message routing, callback
// dispatch, and slash commands with the admin gate applied.
func (a *App) Routes() []tg.Route {
	fsm := fsmAdapter{app: a}

	routes := router.MessageRoutes(fsm, a.registry, router.MessageOptions{
		UnknownLocation: a.handleSearchLocation,
	})
	routes = append(routes, router.CallbackRoute(fsm, a.registry))
	routes = append(routes, router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return helpers.SendText(c, "🚫 This command is for administrators.")
		},
	})...)
	return routes
}

func (a *App) isAdmin(userID int64) bool {
	return a.cfg.Telegram.AdminID != 0 && userID == a.cfg.Telegram.AdminID
}
