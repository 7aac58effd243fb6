package handlers

import (
	"net/url"
	"strconv"
	"time"

	"receipts-api/internal/models"
	"receipts-api/internal/services"

	"github.com/shopspring/decimal"
)

// Accepted date layouts for start_date and end_date. Values without an offset
// are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseReceiptFilter reads the optional listing parameters. Unknown parameters
// are ignored; malformed ones yield a ValidationError.
func parseReceiptFilter(q url.Values) (models.ReceiptFilter, error) {
	var f models.ReceiptFilter
	var err error

	if f.StartDate, err = parseDate(q, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDate(q, "end_date"); err != nil {
		return f, err
	}
	if f.MinAmount, err = parseAmount(q, "min_amount"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseAmount(q, "max_amount"); err != nil {
		return f, err
	}

	if v := q.Get("payment_type"); v != "" {
		pt := models.PaymentType(v)
		if !pt.Valid() {
			return f, &services.ValidationError{Field: "payment_type", Message: "must be one of cash, cashless"}
		}
		f.PaymentType = &pt
	}

	if f.Page, err = parseInt(q, "page", 1); err != nil {
		return f, err
	}
	if f.PageSize, err = parseInt(q, "page_size", 1); err != nil {
		return f, err
	}
	if f.Offset, err = parseInt(q, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &services.ValidationError{Field: name, Message: "must be a date or datetime (RFC3339 or YYYY-MM-DD)"}
}

const maxAmountLength = 64

func parseAmount(q url.Values, name string) (*decimal.Decimal, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	if len(v) > maxAmountLength {
		return nil, &services.ValidationError{Field: name, Message: "is too long"}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "must be a number"}
	}
	return &d, nil
}

func parseInt(q url.Values, name string, min int) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "must be an integer"}
	}
	if n < min {
		return nil, &services.ValidationError{Field: name, Message: "must be greater than or equal to " + strconv.Itoa(min)}
	}
	return &n, nil
}
