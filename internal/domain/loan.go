package domain

import "time"

// DateLayout is the wire and storage format of loan dates.
const DateLayout = "2006-01-02"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

// IsOpen reports whether the loan still holds stock.
func (s LoanStatus) IsOpen() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusOverdue, LoanStatusReturned:
		return true
	}
	return false
}

type Loan struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name"` // snapshot taken when the loan was created
	StartDate       string     `json:"start_date"`
	ExpectedEndDate string     `json:"expected_end_date"`
	ActualEndDate   *string    `json:"actual_end_date,omitempty"`
	Status          LoanStatus `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	Items           []LoanItem `json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ItemIDs returns the loaned item ids in loan order.
func (l *Loan) ItemIDs() []string {
	ids := make([]string, 0, len(l.Items))
	for _, li := range l.Items {
		ids = append(ids, li.ItemID)
	}
	return ids
}

type LoanItem struct {
	ID       string `json:"id"`
	LoanID   string `json:"loan_id"`
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int32  `json:"quantity"`
}

// LoanFilter narrows loan listings. Zero values mean "any".
type LoanFilter struct {
	Status LoanStatus
	UserID string
	Limit  int
}
