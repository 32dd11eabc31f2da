// Command play is a terminal player client. It joins a game by code, renders
// the player view once a second and withdraws when the user presses enter.
// The player identity is persisted per game, so restarting the client rejoins
// as the same player.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bankrun/clients/bankrunclient"
	"github.com/mcdev12/bankrun/internal/models"
	"github.com/mcdev12/bankrun/internal/participant"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "game server URL")
	code := flag.String("code", "", "game join code")
	name := flag.String("name", "", "display name")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if *code == "" {
		fmt.Fprintln(os.Stderr, "usage: play -code CODE -name NAME [-server URL]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := bankrunclient.New(*server)

	identity, err := participant.LoadIdentity(identityPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load identity")
	}

	game, err := api.GetGameByCode(ctx, *code)
	if err != nil {
		log.Fatal().Err(err).Str("code", *code).Msg("game not found")
	}

	playerID, ok := identity.PlayerFor(game.ID)
	if !ok {
		if *name == "" {
			fmt.Fprintln(os.Stderr, "-name is required when joining for the first time")
			os.Exit(1)
		}
		p, _, err := api.JoinGame(ctx, *code, *name)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to join game")
		}
		playerID = p.ID
		if err := identity.Remember(game.ID, playerID); err != nil {
			log.Warn().Err(err).Msg("failed to persist identity")
		}
		fmt.Printf("Joined game %s as %s\n", game.Code, p.Name)
	} else {
		fmt.Printf("Rejoined game %s\n", game.Code)
	}

	ctrl := participant.NewController(game.ID, playerID, api, api, api, clockwork.NewRealClock())
	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("controller failed")
		}
	}()

	// Enter triggers the withdraw attempt.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			go func() {
				if _, err := ctrl.Withdraw(ctx); err != nil {
					printWithdrawError(err)
				}
			}()
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		render(ctrl.Snapshot())
	}
}

func render(v participant.View) {
	switch v.Status {
	case models.GameStatusWaiting:
		fmt.Println("Waiting for the game to start...")
	case models.GameStatusPaused:
		fmt.Printf("[PAUSED] %s\n", v.PauseText)
	case models.GameStatusEnded:
		if v.Outcome == participant.OutcomeEscaped {
			fmt.Printf("Game over. You escaped with $%.2f\n", v.WithdrawnAmount)
		} else {
			fmt.Println("Game over. FTX has filed for bankruptcy. Your funds are gone.")
		}
	default:
		line := fmt.Sprintf("[%3ds] balance $%.2f", v.Elapsed, v.Balance)
		if v.HasWithdrawn {
			line = fmt.Sprintf("[%3ds] withdrew $%.2f", v.Elapsed, v.WithdrawnAmount)
		} else if v.WithdrawPending {
			line += "  (withdrawing...)"
		} else {
			line += "  (enter to withdraw)"
		}
		if v.Journalist != nil {
			line += "  !! " + v.Journalist.Message
		} else if v.Broadcast != nil {
			line += "  FTX: " + v.Broadcast.Message
		}
		fmt.Println(line)
	}
}

func printWithdrawError(err error) {
	var apiErr *bankrunclient.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Code == "withdrawals_frozen":
		fmt.Println("WITHDRAWAL FAILED: withdrawals are frozen")
	case errors.As(err, &apiErr) && apiErr.Code == "already_withdrawn":
		fmt.Println("You have already withdrawn")
	case errors.Is(err, participant.ErrWithdrawInFlight):
		// Already withdrawing; ignore the repeat press.
	case errors.Is(err, participant.ErrGameNotRunning):
		fmt.Println("WITHDRAWAL FAILED:", err)
	default:
		fmt.Println("withdraw failed:", err)
	}
}

func identityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bankrun-identity.json"
	}
	return filepath.Join(home, ".bankrun", "identity.json")
}
