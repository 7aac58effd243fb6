package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"receipts-api/internal/models"

	"github.com/shopspring/decimal"
)

var (
	namePattern     = regexp.MustCompile(`^[\p{L} ,.'-]{2,64}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{2,20}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9#?!@$%^&*+-]{8,128}$`)
)

const (
	maxProductNameLength = 255
	priceScale           = 2
	quantityScale        = 3
	paymentScale         = 2

	// Integer digits allowed per amount. Prices, payments and totals stay
	// below 10^13 and quantities below 10^9, which fits the DECIMAL columns.
	maxMoneyDigits    = 13
	maxQuantityDigits = 9

	filterScale     = 10
	maxFilterDigits = 19

	MaxPageSize = 1000
)

func ValidateRegistration(req *models.RegisterRequest) error {
	if !namePattern.MatchString(req.Name) {
		return invalid("name", "must be 2-64 letters, spaces or ,.'- characters")
	}
	if err := validateUsername(req.Username); err != nil {
		return err
	}
	return validatePassword(req.Password)
}

func ValidateLogin(req *models.LoginRequest) error {
	if err := validateUsername(req.Username); err != nil {
		return err
	}
	return validatePassword(req.Password)
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username", "must be 2-20 letters, digits, underscores or hyphens")
	}
	return nil
}

func validatePassword(password string) error {
	if !passwordPattern.MatchString(password) {
		return invalid("password", "must be 8-128 letters, digits or #?!@$%%^&*+- characters")
	}
	return nil
}

func ValidateReceiptRequest(req *models.CreateReceiptRequest) error {
	for i, p := range req.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return invalid(field("products", i, "name"), "is required")
		}
		if utf8.RuneCountInString(name) > maxProductNameLength {
			return invalid(field("products", i, "name"), "must be at most %d characters", maxProductNameLength)
		}
		if !p.Price.Valid {
			return invalid(field("products", i, "price"), "is required")
		}
		if p.Price.Decimal.IsNegative() {
			return invalid(field("products", i, "price"), "must not be negative")
		}
		if err := checkAmount(field("products", i, "price"), p.Price.Decimal, priceScale, maxMoneyDigits); err != nil {
			return err
		}
		if !p.Quantity.Valid {
			return invalid(field("products", i, "quantity"), "is required")
		}
		if !p.Quantity.Decimal.IsPositive() {
			return invalid(field("products", i, "quantity"), "must be greater than zero")
		}
		if err := checkAmount(field("products", i, "quantity"), p.Quantity.Decimal, quantityScale, maxQuantityDigits); err != nil {
			return err
		}
	}

	if !req.Payment.Type.Valid() {
		return invalid("payment.type", "must be one of cash, cashless")
	}
	if !req.Payment.Amount.Valid {
		return invalid("payment.amount", "is required")
	}
	if req.Payment.Amount.Decimal.IsNegative() {
		return invalid("payment.amount", "must not be negative")
	}
	return checkAmount("payment.amount", req.Payment.Amount.Decimal, paymentScale, maxMoneyDigits)
}

// ValidateReceiptTotal bounds the computed total the same way as prices.
func ValidateReceiptTotal(total decimal.Decimal) error {
	if !withinDigits(total, maxMoneyDigits) {
		return invalid("products", "total must be less than 10^%d", maxMoneyDigits)
	}
	return nil
}

// ValidateReceiptFilter checks the pagination and amount bounds of a listing.
// The offset derived from page and page_size must fit in 32 bits.
func ValidateReceiptFilter(f models.ReceiptFilter) error {
	if f.Page != nil && *f.Page < 1 {
		return invalid("page", "must be greater than or equal to 1")
	}
	if f.PageSize != nil && (*f.PageSize < 1 || *f.PageSize > MaxPageSize) {
		return invalid("page_size", "must be between 1 and %d", MaxPageSize)
	}
	if f.Offset != nil && (*f.Offset < 0 || *f.Offset > math.MaxInt32) {
		return invalid("offset", "must be between 0 and %d", math.MaxInt32)
	}
	if f.Page != nil && f.PageSize != nil {
		maxPage := math.MaxInt32/(*f.PageSize) + 1
		if *f.Page > maxPage {
			return invalid("page", "must be at most %d for page_size %d", maxPage, *f.PageSize)
		}
	}
	if err := checkFilterAmount("min_amount", f.MinAmount); err != nil {
		return err
	}
	return checkFilterAmount("max_amount", f.MaxAmount)
}

func checkFilterAmount(name string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	return checkAmount(name, *d, filterScale, maxFilterDigits)
}

func checkAmount(name string, d decimal.Decimal, places int32, digits int) error {
	if !withinDigits(d, digits) {
		return invalid(name, "must be less than 10^%d", digits)
	}
	if !hasScale(d, places) {
		return invalid(name, "must have at most %d decimal places", places)
	}
	return nil
}

// withinDigits reports whether |d| < 10^digits without rescaling d.
func withinDigits(d decimal.Decimal, digits int) bool {
	if d.Sign() == 0 {
		return true
	}
	return int64(d.NumDigits())+int64(d.Exponent()) <= int64(digits)
}

// hasScale reports whether d has no significant digits beyond places decimals.
// Values whose exponent lies further out than their digit count cannot qualify
// and are rejected before any rescaling.
func hasScale(d decimal.Decimal, places int32) bool {
	excess := -int64(d.Exponent()) - int64(places)
	if excess <= 0 || d.Sign() == 0 {
		return true
	}
	if excess > int64(d.NumDigits()) {
		return false
	}
	return d.Equal(d.Truncate(places))
}

func field(list string, i int, name string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, name)
}
