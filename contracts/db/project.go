package db

// ProjectRecord is a row of the projects collection as it crosses the
// persistence boundary. Dates use "2006-01-02", timestamps RFC 3339.
type ProjectRecord struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Client               string             `json:"client"`
	ClientID             *string            `json:"client_id"`
	TotalValue           float64            `json:"total_value"`
	Status               string             `json:"status"`
	TeamMembers          []string           `json:"team_members"`
	Deadline             *string            `json:"deadline"`
	Description          string             `json:"description"`
	IsRecurring          bool               `json:"is_recurring"`
	HasImplementationFee bool               `json:"has_implementation_fee"`
	ImplementationFee    *float64           `json:"implementation_fee"`
	IsInstallment        bool               `json:"is_installment"`
	InstallmentCount     *int               `json:"installment_count"`
	PaymentDate          *string            `json:"payment_date"`
	DeveloperShares      map[string]float64 `json:"developer_shares"`
	CreatedAt            string             `json:"created_at"`
}
