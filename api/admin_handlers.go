package api

import (
	"fmt"
	"net/http"

	"casebox/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (s *APIServer) adminListCasesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cases, err := s.services.Catalog.GetAllCases(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]adminCaseResponse, 0, len(cases))
		for _, c := range cases {
			out = append(out, newAdminCaseResponse(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"cases": out})
	}
}

type createCaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

func (s *APIServer) adminCreateCaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCaseRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		created, err := s.services.Catalog.CreateCase(r.Context(), &models.Case{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
			IsActive:    active,
			SortOrder:   req.SortOrder,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAdminCaseResponse(created))
	}
}

type updateCaseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	ImageURL    *string `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

func (s *APIServer) adminUpdateCaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		var req updateCaseRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}

		updated, err := s.services.Catalog.UpdateCase(r.Context(), caseID, models.CaseUpdate{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
			IsActive:    req.IsActive,
			SortOrder:   req.SortOrder,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newAdminCaseResponse(updated))
	}
}

func (s *APIServer) adminDeleteCaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		if err := s.services.Catalog.DeleteCase(r.Context(), caseID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *APIServer) adminListItemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		items, err := s.services.Catalog.GetItems(r.Context(), caseID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]adminItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, newAdminItemResponse(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out})
	}
}

type addItemRequest struct {
	Name        string  `json:"name"`
	ImageURL    string  `json:"image_url"`
	Value       int64   `json:"value"`
	Probability float64 `json:"probability"`
}

func (s *APIServer) adminAddItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		var req addItemRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}

		item, err := s.services.Catalog.AddItem(r.Context(), &models.CaseItem{
			CaseID:      caseID,
			Name:        req.Name,
			ImageURL:    req.ImageURL,
			Value:       req.Value,
			Probability: req.Probability,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAdminItemResponse(item))
	}
}

func (s *APIServer) adminDeleteItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := pathID(r, "itemId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		if err := s.services.Catalog.DeleteItem(r.Context(), itemID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *APIServer) adminCaseStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := pathID(r, "caseId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		stats, err := s.services.Reporting.CaseStats(r.Context(), caseID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, caseStatsResponse{
			CaseID:       stats.CaseID,
			OpeningCount: stats.OpeningCount,
			TotalPaid:    stats.TotalPaid,
			TotalWon:     stats.TotalWon,
			HouseEdge:    stats.HouseEdge(),
		})
	}
}

func (s *APIServer) adminTestOpenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.openCase(w, r, true)
	}
}

type grantBalanceRequest struct {
	Amount int64 `json:"amount"`
}

func (s *APIServer) adminGrantBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		var req grantBalanceRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}

		newBalance, err := s.services.Ledger.GrantBalance(r.Context(), userID, req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "new_balance": newBalance})
	}
}

type banRequest struct {
	Banned *bool `json:"banned"`
}

func (s *APIServer) adminBanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		var req banRequest
		if err := decodeBody(r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
		if req.Banned == nil {
			writeBadRequest(w, fmt.Errorf("%w: banned is required", errBadRequest))
			return
		}

		if err := s.services.User.SetBanned(r.Context(), userID, *req.Banned); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "banned": *req.Banned})
	}
}

func (s *APIServer) adminTransactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		limit, err := queryLimit(r)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		if limit == 0 {
			limit = defaultHistoryLimit
		}
		limit = min(limit, maxHistoryLimit)

		out := make([]transactionResponse, 0, limit)
		for entry, err := range s.services.Ledger.History(r.Context(), userID, limit) {
			if err != nil {
				writeError(w, r, err)
				return
			}
			out = append(out, newTransactionResponse(entry))
			if len(out) == limit {
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
	}
}

func (s *APIServer) adminReconcileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		balance, sum, err := s.services.Ledger.Reconcile(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reconcileResponse{
			UserID:    userID,
			Balance:   balance,
			LedgerSum: sum,
			Balanced:  balance == sum,
		})
	}
}
