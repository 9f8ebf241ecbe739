package domain

// DashboardCounts are the aggregate figures computed by the store.
type DashboardCounts struct {
	ActiveLoans         int64 `json:"active_loans"`
	PendingReturns      int64 `json:"pending_returns"`
	OverdueLoans        int64 `json:"overdue_loans"`
	TotalItemsAvailable int64 `json:"total_items_available"`
	TotalUsers          int64 `json:"total_users"`
}

type DashboardStats struct {
	DashboardCounts
	RecentLoans  []Loan  `json:"recent_loans"`
	RecentEvents []Event `json:"recent_events"`
}
