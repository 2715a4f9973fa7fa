package models

// AdminStats is the marketplace summary shown on the admin dashboard.
// Revenue is the UC spent on completed purchases.
type AdminStats struct {
	TotalAccounts       int64 `json:"total_accounts"`
	ActiveAccounts      int64 `json:"active_accounts"`
	SoldAccounts        int64 `json:"sold_accounts"`
	PendingAccounts     int64 `json:"pending_accounts"`
	TotalUsers          int64 `json:"total_users"`
	PendingTransactions int64 `json:"pending_transactions"`
	TodayRevenue        int64 `json:"today_revenue"`
	TotalRevenue        int64 `json:"total_revenue"`
}
