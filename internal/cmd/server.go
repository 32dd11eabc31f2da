package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/bankrun/internal/gateway"
)

func setupServer(port string, gatewayService *gateway.Service, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	gatewayService.RegisterRoutes(mux)
	registerHostView(mux, services)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// registerHostView serves the projector screen's derived view straight from
// the game's running host loop.
func registerHostView(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("GET /api/games/{id}/host", func(w http.ResponseWriter, r *http.Request) {
		gameID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid game ID", http.StatusBadRequest)
			return
		}

		view, ok := services.Supervisor.Snapshot(gameID)
		if !ok {
			http.Error(w, "no host loop for game", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(view); err != nil {
			log.Error().Err(err).Msg("failed to encode host view")
		}
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
