package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeCash     PaymentType = "cash"
	PaymentTypeCashless PaymentType = "cashless"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeCash || t == PaymentTypeCashless
}

type Receipt struct {
	ID            int             `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UserID        int             `json:"-"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentType   PaymentType     `json:"payment_type"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	Items         []LineItem      `json:"items"`
}

// Rest is the change owed to the customer.
func (r *Receipt) Rest() decimal.Decimal {
	return r.PaymentAmount.Sub(r.TotalAmount)
}

type LineItem struct {
	ID          int             `json:"id"`
	ReceiptID   int             `json:"-"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (i LineItem) Total() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

type Payment struct {
	Type   PaymentType     `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// Request amounts are nullable so that missing fields can be told apart from zero.
type ProductRequest struct {
	Name     string              `json:"name"`
	Price    decimal.NullDecimal `json:"price"`
	Quantity decimal.NullDecimal `json:"quantity"`
}

type PaymentRequest struct {
	Type   PaymentType         `json:"type"`
	Amount decimal.NullDecimal `json:"amount"`
}

type CreateReceiptRequest struct {
	Products []ProductRequest `json:"products"`
	Payment  PaymentRequest   `json:"payment"`
}

type ProductResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type CreateReceiptResponse struct {
	ID        int               `json:"id"`
	Products  []ProductResponse `json:"products"`
	Payment   Payment           `json:"payment"`
	Rest      decimal.Decimal   `json:"rest"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReceiptFilter narrows a receipt listing. Nil fields are not applied.
type ReceiptFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	PaymentType *PaymentType
	Page        *int
	PageSize    *int
	Offset      *int
}

type ReceiptList struct {
	Receipts   []Receipt `json:"receipts"`
	TotalCount int       `json:"total_count"`
}

type ReceiptText struct {
	ReceiptText string `json:"receipt_text"`
}
