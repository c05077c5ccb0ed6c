package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

const healthTimeout = 2 * time.Second

var errBadRequest = errors.New("bad request")

// pathID parses a positive integer route variable
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// queryLimit parses ?limit=N. A missing value yields zero so the service
// default applies.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
	}
	return limit, nil
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zeroed.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *APIServer) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Timestamp: s.now().UTC()}
		if s.health != nil {
			if err := s.health.Ping(ctx); err != nil {
				resp.Status = "unavailable"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *APIServer) listCasesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cases, err := s.services.Catalog.GetActiveCases(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]caseResponse, 0, len(cases))
		for _, c := range cases {
			out = append(out, newCaseResponse(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"cases": out})
	}
}

type openRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *APIServer) openCase(w http.ResponseWriter, r *http.Request, isTest bool) {
	caseID, err := pathID(r, "caseId")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req openRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.UserID <= 0 {
		writeBadRequest(w, fmt.Errorf("%w: user_id is required", errBadRequest))
		return
	}

	result, err := s.services.Opening.OpenCase(r.Context(), req.UserID, caseID, isTest)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOpenResponse(result))
}

func (s *APIServer) openCaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.openCase(w, r, false)
	}
}

func (s *APIServer) probabilitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		probabilities, err := s.services.Reporting.CaseProbabilities(r.Context(), caseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newProbabilitiesResponse(probabilities))
	}
}

func (s *APIServer) recentOpeningsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryLimit(r)
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		openings, err := s.services.Reporting.RecentOpenings(r.Context(), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]recentOpeningResponse, 0, len(openings))
		for _, o := range openings {
			out = append(out, recentOpeningResponse{
				Username:  o.Username,
				CaseName:  o.CaseName,
				ItemName:  o.ItemName,
				WinAmount: o.WinAmount,
				CreatedAt: o.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"openings": out})
	}
}

func (s *APIServer) leaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryLimit(r)
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		entries, err := s.services.Reporting.Leaderboard(r.Context(), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]leaderboardEntryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, leaderboardEntryResponse{
				Rank:       e.Rank,
				UserID:     e.UserID,
				Username:   e.Username,
				Balance:    e.Balance,
				TotalGames: e.TotalGames,
				TotalWins:  e.TotalWins,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
	}
}

type userRequest struct {
	Username string `json:"username"`
}

func (s *APIServer) userHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}

		user, err := s.services.User.GetOrCreate(r.Context(), req.Username)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(user))
	}
}
