package handlers

import (
	"newsforge/config"
	"newsforge/services"
	"newsforge/store"
	"newsforge/tasks"

	"go.uber.org/zap"
)

// API bundles everything the HTTP layer needs. Handlers are methods so
// tests can construct one with fakes instead of global state.
type API struct {
	store    *store.Store
	queue    *tasks.Queue
	gen      *services.Generator
	renderer *services.Renderer
	mailer   *services.Mailer
	paddle   *services.PaddleClient
	billing  *services.BillingService
	cfg      *config.Config
	log      *zap.Logger
}

func NewAPI(
	st *store.Store,
	queue *tasks.Queue,
	gen *services.Generator,
	renderer *services.Renderer,
	mailer *services.Mailer,
	paddle *services.PaddleClient,
	billing *services.BillingService,
	cfg *config.Config,
	log *zap.Logger,
) *API {
	return &API{
		store:    st,
		queue:    queue,
		gen:      gen,
		renderer: renderer,
		mailer:   mailer,
		paddle:   paddle,
		billing:  billing,
		cfg:      cfg,
		log:      log,
	}
}
