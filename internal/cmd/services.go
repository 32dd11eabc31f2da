package main

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/game"
	"github.com/mcdev12/bankrun/internal/gameevent"
	"github.com/mcdev12/bankrun/internal/host"
	"github.com/mcdev12/bankrun/internal/player"
	"github.com/mcdev12/bankrun/internal/script"
)

type Services struct {
	Games      *game.App
	Players    *player.App
	Events     *gameevent.App
	Supervisor *host.Supervisor
}

// setupServices wires repository, app and host layers. Every host controller
// gets its own script engine; fired-event tracking is per game run.
func setupServices(pool *pgxpool.Pool, subscriber *feed.Subscriber, gameScript script.Script, clk clockwork.Clock) *Services {
	gameRepo := game.NewRepository(pool)
	playerRepo := player.NewRepository(pool)
	eventRepo := gameevent.NewRepository(pool)

	eventsApp := gameevent.NewApp(eventRepo)
	gamesApp := game.NewApp(gameRepo, eventsApp, playerRepo, clk)
	playersApp := player.NewApp(playerRepo, gamesApp, clk)

	factory := func(gameID uuid.UUID) *host.Controller {
		return host.NewController(
			gameID,
			gamesApp,
			playersApp,
			eventsApp,
			subscriber,
			script.NewEngine(gameScript),
			clk,
		)
	}
	supervisor := host.NewSupervisor(gameRepo, subscriber, factory)

	return &Services{
		Games:      gamesApp,
		Players:    playersApp,
		Events:     eventsApp,
		Supervisor: supervisor,
	}
}
