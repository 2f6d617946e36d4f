package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/duckmesh/duckprompt/internal/config"
	"github.com/duckmesh/duckprompt/internal/dataset"
	"github.com/duckmesh/duckprompt/internal/observability"
	"github.com/duckmesh/duckprompt/internal/pipeline"
	"github.com/duckmesh/duckprompt/internal/render"
)

var errGeneratorMissing = errors.New("query generator is not configured")

type queryRequest struct {
	Prompt   string `json:"prompt"`
	Filename string `json:"filename"`
}

func handleQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request queryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON payload", false, map[string]any{"details": err.Error()})
		return
	}
	request.Prompt = strings.TrimSpace(request.Prompt)
	request.Filename = strings.TrimSpace(request.Filename)
	if request.Prompt == "" || request.Filename == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "Prompt and filename are required", false, nil)
		return
	}
	if deps.Registry == nil || deps.Engine == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "QUERY_UNAVAILABLE", "query pipeline is not configured", false, nil)
		return
	}

	metadata, err := deps.Registry.Get(r.Context(), request.Filename)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DATASET_NOT_FOUND", "File metadata not found", false, map[string]any{"filename": request.Filename})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "REGISTRY_ERROR", "failed to load dataset metadata", true, map[string]any{"details": err.Error()})
		return
	}

	if deps.Generator == nil {
		cause := deps.GeneratorErr
		if cause == nil {
			cause = errGeneratorMissing
		}
		writeJSON(w, http.StatusOK, pipeline.QueryOutcome{
			Description: fmt.Sprintf("Error processing query: %v", cause),
		})
		return
	}

	newSession := func() (*pipeline.Session, error) {
		mode, err := render.ParseMode(cfg.Render.Mode)
		if err != nil {
			mode = render.ModeRecords
		}
		return pipeline.NewSession(pipeline.Options{
			DatasetID:    request.Filename,
			Engine:       deps.Engine,
			Generator:    deps.Generator,
			Registry:     deps.Registry,
			MaxTurns:     cfg.Session.MaxTurns,
			SnapshotRows: cfg.Session.SnapshotRows,
			Mode:         mode,
			Logger:       deps.Logger,
		})
	}

	if deps.Sessions == nil {
		current, err := newSession()
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_ERROR", err.Error(), false, nil)
			return
		}
		writeJSON(w, http.StatusOK, current.Ask(r.Context(), metadata, request.Prompt))
		return
	}

	lease := deps.Sessions.Acquire(r.Header.Get(observability.SessionHeader))
	defer lease.Release()

	current := lease.Value()
	if current == nil || current.DatasetID() != request.Filename {
		current, err = newSession()
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_ERROR", err.Error(), false, nil)
			return
		}
		lease.Replace(current)
	}

	outcome := current.Ask(r.Context(), metadata, request.Prompt)
	w.Header().Set(observability.SessionHeader, lease.ID)
	writeJSON(w, http.StatusOK, outcome)
}
