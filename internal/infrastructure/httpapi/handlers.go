package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/adforge/creative-engine-go/internal/application/learner"
	"github.com/adforge/creative-engine-go/internal/application/mutator"
	"github.com/adforge/creative-engine-go/internal/application/ranker"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// userHandler is a request handler running on behalf of a resolved user.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authenticated wraps a handler with bearer-credential resolution and
// per-credential rate limiting.
func (s *Server) authenticated(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		credential := bearerCredential(r)
		userID, err := s.validator.Authenticate(credential)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		if !s.limiter.allow(credential) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next(w, r, userID)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rankBody struct {
	Creatives  []shared.Creative `json:"creatives"`
	CampaignID string            `json:"campaign_id,omitempty"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request, userID string) {
	var body rankBody
	if !s.decode(w, r, &body) {
		return
	}

	resp, err := s.ranker.Rank(r.Context(), ranker.Request{
		UserID:     userID,
		Creatives:  body.Creatives,
		CampaignID: body.CampaignID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type learnBody struct {
	Outcomes []shared.Outcome `json:"outcomes"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request, userID string) {
	var body learnBody
	if !s.decode(w, r, &body) {
		return
	}

	resp, err := s.learner.Learn(r.Context(), learner.Request{
		UserID:   userID,
		Outcomes: body.Outcomes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type mutateBody struct {
	Ranked     []shared.Creative       `json:"ranked_creatives"`
	CampaignID string                  `json:"campaign_id,omitempty"`
	Goal       shared.OptimizationGoal `json:"goal,omitempty"`
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request, userID string) {
	var body mutateBody
	if !s.decode(w, r, &body) {
		return
	}

	resp, err := s.mutator.Mutate(r.Context(), mutator.Request{
		UserID:     userID,
		Ranked:     body.Ranked,
		CampaignID: body.CampaignID,
		Goal:       body.Goal,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps the engine error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var authErr *shared.AuthError
	var validationErr *shared.ValidationError
	var notFoundErr *shared.NotFoundError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func bearerCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
