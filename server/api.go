package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swoga/router-bridge/platform"
	"github.com/swoga/router-bridge/sensor"
	"go.uber.org/zap"
)

const maxRequestBody = 4 << 10

type EntityResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	State       interface{}            `json:"state"`
	Unit        string                 `json:"unit,omitempty"`
	DeviceClass string                 `json:"device_class,omitempty"`
	Icon        string                 `json:"icon,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

type RouterResponse struct {
	Name      string                 `json:"name"`
	Title     string                 `json:"title"`
	Protocol  string                 `json:"protocol"`
	FetchedAt *time.Time             `json:"fetched_at"`
	States    map[string]interface{} `json:"states"`
	Values    map[string]interface{} `json:"values"`
}

type RebootRequest struct {
	EntityID string `json:"entity_id"`
}

func entityResponse(e sensor.Entity) EntityResponse {
	res := EntityResponse{
		ID:   e.ID(),
		Name: e.Name(),
		Type: "button",
	}
	if s, ok := e.(sensor.Sensor); ok {
		res.Type = "sensor"
		res.Unit = s.Unit()
		res.DeviceClass = s.DeviceClass()
		res.Icon = s.Icon()
		if state, ok := s.State(); ok {
			res.State = state
		}
	}
	if a, ok := e.(sensor.Attributer); ok {
		res.Attributes = a.Attributes()
	}
	return res
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.platform().Entities()
	res := make([]EntityResponse, 0, len(entities))
	for _, e := range entities {
		res = append(res, entityResponse(e))
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRouter(w http.ResponseWriter, r *http.Request) {
	router, ok := s.platform().Router(chi.URLParam(r, "name"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown router")
		return
	}

	snapshot := router.Cache.Snapshot()
	if r.URL.Query().Get("refresh") == "true" {
		snapshot = router.Cache.ForceRefresh(r.Context())
	}

	res := RouterResponse{
		Name:     router.Name,
		Title:    router.Title,
		Protocol: string(router.Client.Protocol()),
		States:   router.States(),
		Values:   snapshot.Values(),
	}
	if !snapshot.Empty() {
		fetchedAt := snapshot.FetchedAt()
		res.FetchedAt = &fetchedAt
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRouterReboot(w http.ResponseWriter, r *http.Request) {
	router, ok := s.platform().Router(chi.URLParam(r, "name"))
	if !ok || router.Button == nil {
		s.respondError(w, http.StatusNotFound, "unknown router")
		return
	}

	router.Button.Reboot(r.Context())
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	var req RebootRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = s.platform().Reboot(r.Context(), req.EntityID)
	switch {
	case errors.Is(err, platform.ErrUnknownEntity):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, platform.ErrNotRebootable):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.log.Error("reboot failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "reboot failed")
	default:
		s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}
