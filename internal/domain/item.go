package domain

import "time"

type Item struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Icon           string    `json:"icon"`
	TotalStock     int32     `json:"total_stock"`
	AvailableStock int32     `json:"available_stock"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OnLoan is the number of units currently reserved by loans.
func (i *Item) OnLoan() int32 {
	return i.TotalStock - i.AvailableStock
}

// Item sources recorded in ITEM_CREATED payloads.
const (
	ItemSourceCustom      = "custom"
	ItemSourceDefaultList = "default_list"
)
