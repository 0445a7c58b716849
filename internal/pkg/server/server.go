// Package server exposes the room status/command HTTP API.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avbuild/roomsync/internal/pkg/room"
)

type roomService interface {
	Rooms() []room.Status
	Room(key string) (room.Status, bool)
	PowerOn(key string) error
	PowerOff(key string) error
}

type server struct {
	rooms  roomService
	logger *zap.Logger
}

func New(rooms roomService) *server {
	return &server{rooms: rooms, logger: zap.L()}
}

func (s *server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.Get("/api/rooms", s.listRooms)
	r.Get("/api/rooms/{key}", s.roomStatus)
	r.Post("/api/rooms/{key}/power/{state}", s.roomPower)
	return r
}

func (s *server) listRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rooms.Rooms())
}

func (s *server) roomStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := s.rooms.Room(chi.URLParam(r, "key"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) roomPower(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var err error
	switch state := chi.URLParam(r, "state"); state {
	case "on":
		err = s.rooms.PowerOn(key)
	case "off":
		err = s.rooms.PowerOff(key)
	default:
		http.Error(w, "state must be on or off", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Info("room power command accepted", zap.String("room", key))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("success"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
