package host

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/internal/feed"
	"github.com/mcdev12/bankrun/internal/models"
)

// GameLister returns every game that still needs a host loop.
type GameLister interface {
	ListActiveGames(ctx context.Context) ([]models.Game, error)
}

// AllGamesSource delivers changes across every game.
type AllGamesSource interface {
	SubscribeAll(ctx context.Context) (*feed.Subscription, error)
}

// ControllerFactory builds a host controller for one game.
type ControllerFactory func(gameID uuid.UUID) *Controller

// Supervisor keeps exactly one host controller running per non-ended game.
// New games are picked up from the change feed; on startup it resumes loops
// for games that were live before a restart, which is safe because
// controllers re-derive everything from the store.
type Supervisor struct {
	lister  GameLister
	source  AllGamesSource
	factory ControllerFactory

	mu      sync.Mutex
	running map[uuid.UUID]*supervised
}

type supervised struct {
	ctrl   *Controller
	cancel context.CancelFunc
}

func NewSupervisor(lister GameLister, source AllGamesSource, factory ControllerFactory) *Supervisor {
	return &Supervisor{
		lister:  lister,
		source:  source,
		factory: factory,
		running: make(map[uuid.UUID]*supervised),
	}
}

// Run supervises host controllers until the context is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	games, err := s.lister.ListActiveGames(ctx)
	if err != nil {
		return err
	}
	for _, g := range games {
		s.ensure(ctx, g.ID)
	}

	sub, err := s.source.SubscribeAll(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return ctx.Err()
		case env := <-sub.C:
			s.handleEnvelope(ctx, env)
		}
	}
}

// Running reports whether a game currently has a host loop.
func (s *Supervisor) Running(gameID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[gameID]
	return ok
}

// Snapshot returns the live host view for a game, if it has a running loop.
func (s *Supervisor) Snapshot(gameID uuid.UUID) (View, bool) {
	s.mu.Lock()
	sv, ok := s.running[gameID]
	s.mu.Unlock()
	if !ok {
		return View{}, false
	}
	return sv.ctrl.Snapshot(), true
}

func (s *Supervisor) handleEnvelope(ctx context.Context, env feed.Envelope) {
	if env.Table != feed.TableGames {
		return
	}

	switch env.Kind {
	case feed.KindInsert:
		s.ensure(ctx, env.GameID)
	case feed.KindUpdate:
		var g models.Game
		if err := json.Unmarshal(env.Row, &g); err != nil {
			log.Error().Err(err).Msg("failed to decode game row")
			return
		}
		if g.Status == models.GameStatusEnded {
			s.stop(env.GameID)
		}
	case feed.KindDelete:
		s.stop(env.GameID)
	}
}

func (s *Supervisor) ensure(ctx context.Context, gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[gameID]; ok {
		return
	}

	cctx, cancel := context.WithCancel(ctx)
	ctrl := s.factory(gameID)
	s.running[gameID] = &supervised{ctrl: ctrl, cancel: cancel}

	go func() {
		if err := ctrl.Run(cctx); err != nil && cctx.Err() == nil {
			log.Error().Err(err).Str("game_id", gameID.String()).Msg("host controller exited")
		}
		s.stop(gameID)
	}()

	log.Info().Str("game_id", gameID.String()).Msg("host controller started")
}

func (s *Supervisor) stop(gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sv, ok := s.running[gameID]; ok {
		sv.cancel()
		delete(s.running, gameID)
		log.Info().Str("game_id", gameID.String()).Msg("host controller stopped")
	}
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gameID, sv := range s.running {
		sv.cancel()
		delete(s.running, gameID)
	}
}
