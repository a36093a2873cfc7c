package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FraudShield1/homeai-bot/internal/scene"
)

// maxQueryParamLen limits URL parameter length to prevent DoS via oversized params.
const maxQueryParamLen = 100

// handleListScenes returns all scenes sorted by name.
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.scenes.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list scenes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes, "count": len(scenes)})
}

// handleGetScene returns a single scene by name. Name matching is
// case-insensitive.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene name")
		return
	}

	sc, err := s.scenes.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to get scene")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handlePutScene creates or replaces a scene. The name in the URL wins
// over any name in the body. Returns 201 for a new scene, 200 for a
// replacement.
func (s *Server) handlePutScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene name")
		return
	}

	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	sc.Name = name

	_, getErr := s.scenes.Get(r.Context(), name)
	existed := getErr == nil

	if err := s.scenes.Save(r.Context(), &sc); err != nil {
		if errors.Is(err, scene.ErrInvalidScene) || errors.Is(err, scene.ErrInvalidName) ||
			errors.Is(err, scene.ErrNoActions) || errors.Is(err, scene.ErrInvalidAction) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to save scene")
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, sc)
}

// handleDeleteScene removes a scene by name.
func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene name")
		return
	}

	if err := s.scenes.Delete(r.Context(), name); err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to delete scene")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activateRequest is the request body for POST /scenes/{name}/activate.
type activateRequest struct {
	Source string `json:"source"`
}

// handleActivateScene runs a scene synchronously and returns the
// per-device outcome. Device failures do not fail the request; they are
// reported in the result's failed list.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene name")
		return
	}
	if s.sceneEngine == nil {
		writeInternalError(w, "scene engine not available")
		return
	}

	var req activateRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	result := s.sceneEngine.Activate(r.Context(), name, source)
	if result.NotFound {
		writeNotFound(w, "scene not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListSceneActivations returns activation history for a scene,
// newest first.
func (s *Server) handleListSceneActivations(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid scene name")
		return
	}

	// Verify the scene exists so a typo reads as 404 rather than an
	// empty history.
	if _, err := s.scenes.Get(r.Context(), name); err != nil {
		if errors.Is(err, scene.ErrNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		writeInternalError(w, "failed to get scene")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	activations, err := s.sceneRepo.ListActivations(r.Context(), scene.NormalizeName(name), limit)
	if err != nil {
		writeInternalError(w, "failed to list activations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"activations": activations, "count": len(activations)})
}
