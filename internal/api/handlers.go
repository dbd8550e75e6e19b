package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/verify"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// uploadedFlyer reads the multipart "file" field.
func (s *Server) uploadedFlyer(w http.ResponseWriter, r *http.Request) (flyer.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.deps.MaxUploadBytes); err != nil {
		return flyer.Document{}, fmt.Errorf("parsing upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return flyer.Document{}, fmt.Errorf("reading file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return flyer.Document{}, fmt.Errorf("reading upload: %w", err)
	}
	return flyer.Document{Name: header.Filename, Data: data}, nil
}

// importError maps an import failure to a response.
func importError(w http.ResponseWriter, err error) {
	if errors.Is(err, flyer.ErrUnreadableDocument) {
		apiError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	apiError(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, err := s.uploadedFlyer(w, r)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	if dryRun {
		result, err := s.deps.Service.Extract(doc)
		if err != nil {
			importError(w, err)
			return
		}
		apiJSON(w, result, http.StatusOK)
		return
	}

	result, _, err := s.deps.Service.Import(doc)
	if err != nil {
		importError(w, err)
		return
	}
	apiJSON(w, result, http.StatusCreated)
}

// maxJSONBytes bounds a JSON request body.
const maxJSONBytes = 1 << 20

// lookupError maps a failed property lookup to a response.
func lookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, property.ErrAmbiguousID):
		apiError(w, err.Error(), http.StatusConflict)
	default:
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

type verifyRequest struct {
	IDs []string `json:"ids"`
	// Source picks the flyer for IDs stored from more than one.
	Source string `json:"source,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var props []*property.Property

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		doc, err := s.uploadedFlyer(w, r)
		if err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := s.deps.Service.Extract(doc)
		if err != nil {
			importError(w, err)
			return
		}
		props = result.Properties
	} else {
		var req verifyRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if len(req.IDs) == 0 {
			apiError(w, "ids is required", http.StatusBadRequest)
			return
		}
		for _, id := range req.IDs {
			rec, err := s.deps.Repo.Get(id, req.Source)
			if err != nil {
				lookupError(w, err)
				return
			}
			p := rec.Property
			props = append(props, &p)
		}
	}

	// Verification outlives the client connection. Adapters keep their own
	// timeouts.
	ctx := context.WithoutCancel(r.Context())
	reports := s.deps.Orchestrator.VerifyAll(ctx, props)
	if err := verify.Store(s.deps.Repo, reports); err != nil {
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	apiJSON(w, reports, http.StatusOK)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	opts := property.ListOptions{Source: r.URL.Query().Get("source")}
	if status := r.URL.Query().Get("follow_up"); status != "" {
		if !property.ValidFollowUpStatus(status) {
			apiError(w, "follow_up must be none, pending or called", http.StatusBadRequest)
			return
		}
		opts.FollowUp = property.FollowUpStatus(status)
	}
	s.listProperties(w, opts)
}

func (s *Server) handleListFollowUps(w http.ResponseWriter, r *http.Request) {
	s.listProperties(w, property.ListOptions{FollowUp: property.FollowUpPending})
}

func (s *Server) listProperties(w http.ResponseWriter, opts property.ListOptions) {
	records, err := s.deps.Repo.List(opts)
	if err != nil {
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*property.Record{}
	}
	apiJSON(w, records, http.StatusOK)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Repo.Get(chi.URLParam(r, "id"), r.URL.Query().Get("source"))
	if err != nil {
		lookupError(w, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Repo.Delete(chi.URLParam(r, "id"), r.URL.Query().Get("source"))
	if err != nil {
		lookupError(w, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

func (s *Server) handleMarkCalled(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Repo.UpdateFollowUpStatus(chi.URLParam(r, "id"), r.URL.Query().Get("source"), property.FollowUpCalled)
	if err != nil {
		lookupError(w, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}
