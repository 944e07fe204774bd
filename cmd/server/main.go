package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/blueprint-strategy/config"
	"github.com/user/blueprint-strategy/internal/game"
	"github.com/user/blueprint-strategy/internal/types"
)

func main() {
	// Parse command line flags; .env can override the config path
	_ = godotenv.Load()
	defaultConfig := "./config/config.json"
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		defaultConfig = env
	}
	configPath := flag.String("config", defaultConfig, "Path to configuration file")
	flag.Parse()

	// Set up logger
	logger := setupLogger()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	// Load game content
	loader := game.NewDataLoader(cfg.Data.Dir, logger)
	if err := loader.Load(); err != nil {
		logger.Fatal("Failed to load game content", zap.Error(err))
	}

	// Wire the engine: explicit dependency injection, no ambient context
	store := game.NewGameStore(logger)
	resources := game.NewResourceManager(store, logger)
	rules := game.NewStandardRules(cfg.Game, store, loader, logger)
	factory := game.NewEffectFactory(logger)
	dice := game.NewDiceRoller()
	engine := game.NewEffectEngine(store, resources, rules, logger)
	turns := game.NewTurnService(cfg.Game, loader, store, rules, dice, factory, engine, logger)
	negotiations := game.NewNegotiationService(cfg.Game, store, logger)
	snapshots := game.NewSnapshotStorage(cfg.Data.SnapshotPath)

	server := setupHTTPServer(cfg, store, turns, negotiations, snapshots, logger)

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
}

func setupLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

func setupHTTPServer(cfg config.Config, store *game.GameStore, turns *game.TurnService, negotiations *game.NegotiationService, snapshots *game.SnapshotStorage, logger *zap.Logger) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	router.Route("/api/game", func(r chi.Router) {
		r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, store.GetGameState())
		})

		r.Post("/players", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Name  string `json:"name"`
				Color string `json:"color"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			player, err := turns.AddPlayer(req.Name, req.Color)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, player)
		})

		r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
			if err := turns.StartGame(); err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, store.GetGameState())
		})

		r.Post("/roll", func(w http.ResponseWriter, r *http.Request) {
			playerID, ok := decodePlayerID(w, r)
			if !ok {
				return
			}
			result, err := turns.RollDiceWithFeedback(playerID)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/reroll", func(w http.ResponseWriter, r *http.Request) {
			playerID, ok := decodePlayerID(w, r)
			if !ok {
				return
			}
			result, err := turns.RerollDice(playerID)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/manual-effect", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				PlayerID   string `json:"player_id"`
				EffectType string `json:"effect_type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			result, err := turns.TriggerManualEffectWithFeedback(req.PlayerID, req.EffectType)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/play-card", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				PlayerID string `json:"player_id"`
				CardID   string `json:"card_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			result, err := turns.PlayCard(req.PlayerID, req.CardID)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/choice", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				PlayerID string `json:"player_id"`
				OptionID string `json:"option_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			result, err := turns.ResolveChoice(req.PlayerID, req.OptionID)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Post("/try-again", func(w http.ResponseWriter, r *http.Request) {
			playerID, ok := decodePlayerID(w, r)
			if !ok {
				return
			}
			shouldAdvance, err := turns.TryAgainOnSpace(playerID)
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"should_advance": shouldAdvance})
		})

		r.Post("/end-turn", func(w http.ResponseWriter, r *http.Request) {
			nextID, err := turns.EndTurn()
			if err != nil {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"next_player_id": nextID})
		})

		r.Route("/negotiation", func(r chi.Router) {
			r.Post("/initiate", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					InitiatorID string `json:"initiator_id"`
					PartnerID   string `json:"partner_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
				negotiation, err := negotiations.Initiate(req.InitiatorID, req.PartnerID)
				if err != nil {
					writeError(w, http.StatusConflict, err.Error())
					return
				}
				writeJSON(w, http.StatusCreated, negotiation)
			})

			r.Post("/offer", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					PlayerID string                 `json:"player_id"`
					Offer    types.NegotiationOffer `json:"offer"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
				if err := negotiations.MakeOffer(req.PlayerID, req.Offer); err != nil {
					writeError(w, http.StatusConflict, err.Error())
					return
				}
				w.WriteHeader(http.StatusOK)
			})

			r.Post("/accept", negotiationAction(negotiations.AcceptOffer))
			r.Post("/decline", negotiationAction(negotiations.DeclineOffer))
			r.Post("/cancel", negotiationAction(negotiations.Cancel))
		})

		r.Post("/save", func(w http.ResponseWriter, r *http.Request) {
			if err := snapshots.SaveGameState(store.GetGameState()); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
			state, err := snapshots.LoadGameState()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			store.ReplaceState(state)
			writeJSON(w, http.StatusOK, state)
		})
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	return &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}
}

// negotiationAction adapts the single-player-id negotiation methods to
// one handler shape.
func negotiationAction(fn func(playerID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := decodePlayerID(w, r)
		if !ok {
			return
		}
		if err := fn(playerID); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func decodePlayerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return "", false
	}
	return req.PlayerID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func waitForShutdown(logger *zap.Logger) {
	// Set up channel for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	logger.Info("Shutting down")
}
