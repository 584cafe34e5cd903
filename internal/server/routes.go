package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/scythe504/skribblr-sync/internal/game"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HelloWorldHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api/rooms").Subrouter()
	api.HandleFunc("", s.CreateRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}", s.GetRoomHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/{code}/join", s.JoinRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}/leave", s.LeaveRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}/end", s.EndRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}/start", s.StartRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}/round/next", s.NextRoundHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/{code}/debug/score", s.IncrementScoreHandler).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/ws/{code}", s.WebSocketHandler)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// websocket upgrades skip the remaining CORS handling
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Hello World",
		"rooms":   s.manager.RoomCount(),
	})
}

func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := s.manager.CreateRoom()
	s.writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.manager.Snapshot(mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, room)
}

func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("player_name"))
	if name == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "player_name is required"})
		return
	}
	player, err := s.manager.Join(mux.Vars(r)["code"], name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"player_id": player.ID})
}

func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := s.manager.Leave(r.Context(), code, r.URL.Query().Get("player_id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Player left room"})
}

func (s *Server) EndRoomHandler(w http.ResponseWriter, r *http.Request) {
	standings, err := s.manager.EndRoom(mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Game ended",
		"leaderboard": standings,
	})
}

func (s *Server) StartRoomHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.StartGame(r.Context(), mux.Vars(r)["code"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Game started"})
}

func (s *Server) NextRoundHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.NextRound(r.Context(), mux.Vars(r)["code"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Next round started"})
}

func (s *Server) IncrementScoreHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := s.manager.IncrementScore(code, r.URL.Query().Get("player_id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Score incremented"})
}

func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	s.manager.ServeRoom(w, r, mux.Vars(r)["code"])
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrRoomFull), errors.Is(err, game.ErrNotEnoughPlayers):
		status = http.StatusBadRequest
	default:
		s.log.Error().Err(err).Msg("[writeError] unexpected error")
	}
	s.writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	start := time.Now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("[writeJSON] error encoding response")
		return
	}
	s.log.Debug().Int("status", status).Dur("took", time.Since(start)).Msg("[writeJSON] response sent")
}
