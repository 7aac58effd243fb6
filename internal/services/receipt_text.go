package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"receipts-api/internal/config"
	"receipts-api/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const receiptRule = "================================"

// ReceiptRenderer produces the plain-text receipt handed to customers.
type ReceiptRenderer struct {
	receipts *ReceiptService
	users    *UserService
	labels   config.ReceiptConfig
	location *time.Location
	logger   zerolog.Logger
}

func NewReceiptRenderer(receipts *ReceiptService, users *UserService, labels config.ReceiptConfig, logger zerolog.Logger) *ReceiptRenderer {
	loc, err := time.LoadLocation(labels.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", labels.Timezone).Msg("Unknown receipt timezone, using UTC")
		loc = time.UTC
	}
	return &ReceiptRenderer{
		receipts: receipts,
		users:    users,
		labels:   labels,
		location: loc,
		logger:   logger,
	}
}

// RenderReceiptText loads the receipt without an ownership check and formats it.
func (r *ReceiptRenderer) RenderReceiptText(ctx context.Context, receiptID int) (string, error) {
	receipt, err := r.receipts.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return "", err
	}

	seller := ""
	user, err := r.users.GetUserByID(ctx, receipt.UserID)
	switch {
	case err == nil:
		seller = user.Name
	case errors.Is(err, ErrUserNotFound):
		r.logger.Warn().Int("receipt_id", receiptID).Int("user_id", receipt.UserID).Msg("Receipt seller not found")
	default:
		return "", err
	}

	return FormatReceipt(receipt, seller, r.labels, r.location), nil
}

// FormatReceipt lays out receipt as fixed-width text. An empty seller prints the
// unknown-seller label.
func FormatReceipt(receipt *models.Receipt, seller string, labels config.ReceiptConfig, loc *time.Location) string {
	if seller == "" {
		seller = labels.UnknownSeller
	}
	if loc == nil {
		loc = time.UTC
	}

	lines := []string{
		labels.SellerPrefix + " " + seller,
		receiptRule,
	}

	for _, item := range receipt.Items {
		lines = append(lines,
			formatQuantity(item.Quantity)+" x "+FormatMoney(item.Price)+" "+FormatMoney(item.Total()),
			item.ProductName,
		)
	}

	lines = append(lines,
		receiptRule,
		labels.TotalLabel+" "+FormatMoney(receipt.TotalAmount),
		string(receipt.PaymentType)+" "+FormatMoney(receipt.PaymentAmount),
		labels.ChangeLabel+" "+FormatMoney(receipt.Rest()),
		receiptRule,
		" "+receipt.CreatedAt.In(loc).Format("02.01.2006 15:04")+" ",
		labels.ThankYou,
	)

	return strings.Join(lines, "\n")
}

// FormatMoney prints d with two decimals and comma thousands separators.
func FormatMoney(d decimal.Decimal) string {
	rounded := d.RoundBank(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).StringFixed(2)
	return sign + humanize.BigComma(whole.BigInt()) + strings.TrimPrefix(cents, "0")
}

func formatQuantity(q decimal.Decimal) string {
	if hasScale(q, 2) {
		return q.StringFixed(2)
	}
	return q.StringFixed(quantityScale)
}
