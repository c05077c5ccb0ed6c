package models

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	Rank       int    `db:"-"`
	UserID     int64  `db:"id"`
	Username   string `db:"username"`
	Balance    int64  `db:"balance"`
	TotalGames int64  `db:"total_games"`
	TotalWins  int64  `db:"total_wins"`
}

// ItemProbability describes one item's share of its case
type ItemProbability struct {
	ItemID      int64
	Name        string
	Value       int64
	Weight      float64
	Probability float64 // Weight / total weight, zero when the case is empty
}

// CaseProbabilities is the normalized probability table of a case
type CaseProbabilities struct {
	CaseID        int64
	CaseName      string
	Price         int64
	IsActive      bool
	TotalWeight   float64
	ExpectedValue float64
	Items         []ItemProbability
}

// CaseStats aggregates real openings of a case
type CaseStats struct {
	CaseID       int64 `db:"case_id"`
	OpeningCount int64 `db:"opening_count"`
	TotalPaid    int64 `db:"total_paid"`
	TotalWon     int64 `db:"total_won"`
}

// HouseEdge is the share of paid credits that was not returned
func (s *CaseStats) HouseEdge() float64 {
	if s.TotalPaid == 0 {
		return 0
	}
	return float64(s.TotalPaid-s.TotalWon) / float64(s.TotalPaid)
}
