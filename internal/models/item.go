package models

import (
	"github.com/google/uuid"
)

// History record kinds. Update records are written by the restock/update
// path, sale records by the decrease path.
const (
	HistoryKindUpdate = "update"
	HistoryKindSale   = "sale"
)

// Item is a stock item owned by a single user. Product names are unique
// per owner (case-insensitive, enforced by the add operation). Quantity
// only changes through the update (increment) and decrease (sale) paths.
type Item struct {
	BaseModel
	UserID             uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	ProductName        string    `gorm:"index" json:"productName"`
	ProductPrice       float64   `json:"productPrice"`
	ProductSellPrice   float64   `json:"productSellPrice"`
	Quantity           int       `json:"quantity"`
	ProductDescription string    `json:"productDescription"`
}

// HistoryRecord is one entry in the append-only audit trail. Records are
// never updated or deleted; the Item row is just the current-state
// projection of this stream. QuantityChanged is positive for update
// records and negative for sale records. CreatedAt is the occurred-at
// instant.
type HistoryRecord struct {
	BaseModel
	Kind            string    `gorm:"index" json:"kind"`
	ProductName     string    `json:"productName"`
	ProductPrice    float64   `json:"productPrice"`
	SellPrice       float64   `json:"sellPrice"`
	QuantityChanged int       `json:"quantityChanged"`
	UserID          uuid.UUID `gorm:"type:uuid;index" json:"userId"`
}

// InvestmentEntry captures price*quantity at the moment an item is added.
// Entries are never mutated; together with update history records they
// form the investment basis for the dashboard.
type InvestmentEntry struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;index" json:"userId"`
	Amount float64   `json:"amount"`
}
