// Package api exposes the local HTTP control surface of the daemon.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ruteroapp/fieldsync/internal/models"
	"github.com/ruteroapp/fieldsync/internal/syncer"
)

// SyncService is the slice of the syncer the API needs.
type SyncService interface {
	State() syncer.State
	SyncNow()
	EnqueueSalePoint(trackID int64, name string, lat, lng float64) (string, error)
	EnqueueTrackSegment(trackID int64, segment models.TrackSegment) (string, error)
}

// RecordingService is the slice of the snapshot store the API needs.
type RecordingService interface {
	Current() *models.RecordingSnapshot
	Save(snapshot models.RecordingSnapshot) error
	Clear() error
}

// Handler serves the control API.
type Handler struct {
	sync      SyncService
	recording RecordingService
}

// NewHandler creates a Handler.
func NewHandler(sync SyncService, recording RecordingService) *Handler {
	return &Handler{
		sync:      sync,
		recording: recording,
	}
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/sync/trigger", h.TriggerSync)
		r.Post("/sale-points", h.CreateSalePoint)
		r.Post("/track-segments", h.CreateTrackSegment)
		r.Get("/recording", h.GetRecording)
		r.Put("/recording", h.SaveRecording)
		r.Delete("/recording", h.ClearRecording)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.State())
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.sync.SyncNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

type createSalePointRequest struct {
	TrackID   int64   `json:"track_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handler) CreateSalePoint(w http.ResponseWriter, r *http.Request) {
	var req createSalePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TrackID == 0 || req.Name == "" {
		http.Error(w, "track_id and name are required", http.StatusBadRequest)
		return
	}

	id, err := h.sync.EnqueueSalePoint(req.TrackID, req.Name, req.Latitude, req.Longitude)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

type createTrackSegmentRequest struct {
	TrackID int64               `json:"track_id"`
	Segment models.TrackSegment `json:"segment"`
}

func (h *Handler) CreateTrackSegment(w http.ResponseWriter, r *http.Request) {
	var req createTrackSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TrackID == 0 || req.Segment.ID == "" {
		http.Error(w, "track_id and segment.id are required", http.StatusBadRequest)
		return
	}

	id, err := h.sync.EnqueueTrackSegment(req.TrackID, req.Segment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	snapshot := h.recording.Current()
	if snapshot == nil {
		http.Error(w, "no active recording", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) SaveRecording(w http.ResponseWriter, r *http.Request) {
	var snapshot models.RecordingSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.recording.Save(snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.recording.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
