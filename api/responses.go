package api

import (
	"time"

	"casebox/models"
)

const defaultCaseImage = "/static/default-case.png"

type caseResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url"`
	ItemsCount  int    `json:"items_count"`
}

type adminCaseResponse struct {
	caseResponse
	IsActive         bool      `json:"is_active"`
	SortOrder        int       `json:"sort_order"`
	TotalProbability float64   `json:"total_probability"`
	CreatedAt        time.Time `json:"created_at"`
}

type itemResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Value    int64  `json:"value"`
}

type adminItemResponse struct {
	itemResponse
	CaseID      int64   `json:"case_id"`
	Probability float64 `json:"probability"`
}

type openResponse struct {
	Success    bool         `json:"success"`
	OpeningID  int64        `json:"opening_id"`
	Item       itemResponse `json:"item"`
	WinAmount  int64        `json:"win_amount"`
	NewBalance *int64       `json:"new_balance"`
	IsTest     bool         `json:"is_test,omitempty"`
}

type recentOpeningResponse struct {
	Username  string    `json:"username"`
	CaseName  string    `json:"case_name"`
	ItemName  string    `json:"item_name"`
	WinAmount int64     `json:"win_amount"`
	CreatedAt time.Time `json:"created_at"`
}

type leaderboardEntryResponse struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Balance    int64  `json:"balance"`
	TotalGames int64  `json:"total_games"`
	TotalWins  int64  `json:"total_wins"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Balance   int64  `json:"balance"`
	IsPremium bool   `json:"is_premium"`
	IsAdmin   bool   `json:"is_admin"`
}

type itemProbabilityResponse struct {
	ItemID      int64   `json:"item_id"`
	Name        string  `json:"name"`
	Value       int64   `json:"value"`
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability"`
}

type probabilitiesResponse struct {
	CaseID        int64                     `json:"case_id"`
	CaseName      string                    `json:"case_name"`
	Price         int64                     `json:"price"`
	IsActive      bool                      `json:"is_active"`
	TotalWeight   float64                   `json:"total_weight"`
	ExpectedValue float64                   `json:"expected_value"`
	Items         []itemProbabilityResponse `json:"items"`
}

type caseStatsResponse struct {
	CaseID       int64   `json:"case_id"`
	OpeningCount int64   `json:"opening_count"`
	TotalPaid    int64   `json:"total_paid"`
	TotalWon     int64   `json:"total_won"`
	HouseEdge    float64 `json:"house_edge"`
}

type transactionResponse struct {
	ID            int64          `json:"id"`
	Amount        int64          `json:"amount"`
	BalanceBefore int64          `json:"balance_before"`
	BalanceAfter  int64          `json:"balance_after"`
	Type          string         `json:"type"`
	Metadata      map[string]any `json:"metadata"`
	RelatedID     *int64         `json:"related_id"`
	CreatedAt     time.Time      `json:"created_at"`
}

type reconcileResponse struct {
	UserID    int64 `json:"user_id"`
	Balance   int64 `json:"balance"`
	LedgerSum int64 `json:"ledger_sum"`
	Balanced  bool  `json:"balanced"`
}

func newCaseResponse(c *models.Case) caseResponse {
	image := c.ImageURL
	if image == "" {
		image = defaultCaseImage
	}
	return caseResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Price:       c.Price,
		ImageURL:    image,
		ItemsCount:  c.ItemsCount,
	}
}

func newAdminCaseResponse(c *models.Case) adminCaseResponse {
	return adminCaseResponse{
		caseResponse:     newCaseResponse(c),
		IsActive:         c.IsActive,
		SortOrder:        c.SortOrder,
		TotalProbability: c.TotalProbability,
		CreatedAt:        c.CreatedAt,
	}
}

func newItemResponse(item *models.CaseItem) itemResponse {
	return itemResponse{
		ID:       item.ID,
		Name:     item.Name,
		ImageURL: item.ImageURL,
		Value:    item.Value,
	}
}

func newAdminItemResponse(item *models.CaseItem) adminItemResponse {
	return adminItemResponse{
		itemResponse: newItemResponse(item),
		CaseID:       item.CaseID,
		Probability:  item.Probability,
	}
}

func newOpenResponse(result *models.OpeningResult) openResponse {
	return openResponse{
		Success:    true,
		OpeningID:  result.OpeningID,
		Item:       newItemResponse(result.Item),
		WinAmount:  result.WinAmount,
		NewBalance: result.NewBalance,
		IsTest:     result.IsTest,
	}
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Balance:   u.Balance,
		IsPremium: u.IsPremium,
		IsAdmin:   u.IsAdmin,
	}
}

func newProbabilitiesResponse(p *models.CaseProbabilities) probabilitiesResponse {
	items := make([]itemProbabilityResponse, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, itemProbabilityResponse{
			ItemID:      item.ItemID,
			Name:        item.Name,
			Value:       item.Value,
			Weight:      item.Weight,
			Probability: item.Probability,
		})
	}
	return probabilitiesResponse{
		CaseID:        p.CaseID,
		CaseName:      p.CaseName,
		Price:         p.Price,
		IsActive:      p.IsActive,
		TotalWeight:   p.TotalWeight,
		ExpectedValue: p.ExpectedValue,
		Items:         items,
	}
}

func newTransactionResponse(tx *models.Transaction) transactionResponse {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return transactionResponse{
		ID:            tx.ID,
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		Type:          string(tx.Type),
		Metadata:      metadata,
		RelatedID:     tx.RelatedID,
		CreatedAt:     tx.CreatedAt,
	}
}
