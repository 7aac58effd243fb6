package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"receipts-api/internal/db"
	"receipts-api/internal/models"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const receiptColumns = "id, created_at, user_id, total_amount, payment_type, payment_amount"

// ReceiptService is the receipt ledger: it creates receipts together with their
// line items and lists them per owner.
type ReceiptService struct {
	db     *db.Database
	logger zerolog.Logger
	now    func() time.Time
}

func NewReceiptService(database *db.Database, logger zerolog.Logger) *ReceiptService {
	return &ReceiptService{
		db:     database,
		logger: logger,
		now:    time.Now,
	}
}

// ReceiptTotal sums price × quantity over items.
func ReceiptTotal(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	return total
}

func (s *ReceiptService) CreateReceipt(ctx context.Context, ownerID int, req *models.CreateReceiptRequest) (*models.CreateReceiptResponse, error) {
	if err := ValidateReceiptRequest(req); err != nil {
		return nil, err
	}

	items := lo.Map(req.Products, func(p models.ProductRequest, _ int) models.LineItem {
		return models.LineItem{
			ProductName: strings.TrimSpace(p.Name),
			Quantity:    p.Quantity.Decimal,
			Price:       p.Price.Decimal,
		}
	})
	total := ReceiptTotal(items)
	if err := ValidateReceiptTotal(total); err != nil {
		return nil, err
	}
	paid := req.Payment.Amount.Decimal

	if paid.LessThan(total) {
		return nil, ErrInsufficientPayment
	}

	createdAt := s.now().UTC().Truncate(time.Microsecond)

	var receiptID int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO sales_receipts (created_at, user_id, total_amount, payment_type, payment_amount) VALUES (?, ?, ?, ?, ?)",
			createdAt, ownerID, total, string(req.Payment.Type), paid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert receipt: %w", err)
		}

		receiptID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get receipt ID: %w", err)
		}

		for _, item := range items {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO sales_items (sales_receipt_id, product_name, quantity, price) VALUES (?, ?, ?, ?)",
				receiptID, item.ProductName, item.Quantity, item.Price,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", ownerID).Msg("Error creating receipt")
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	s.logger.Info().
		Int64("receipt_id", receiptID).
		Int("user_id", ownerID).
		Str("total", total.String()).
		Int("items", len(items)).
		Msg("Receipt created")

	return &models.CreateReceiptResponse{
		ID: int(receiptID),
		Products: lo.Map(items, func(item models.LineItem, _ int) models.ProductResponse {
			return models.ProductResponse{
				Name:     item.ProductName,
				Price:    item.Price,
				Quantity: item.Quantity,
				Total:    item.Total(),
			}
		}),
		Payment:   models.Payment{Type: req.Payment.Type, Amount: paid},
		Rest:      paid.Sub(total),
		Total:     total,
		CreatedAt: createdAt,
	}, nil
}

// Pagination resolves the offset and optional limit of a listing. page/page_size
// take precedence over an explicit offset.
func Pagination(f models.ReceiptFilter) (offset int, limit *int) {
	if f.Page != nil && f.PageSize != nil {
		offset = (*f.Page - 1) * *f.PageSize
	} else if f.Offset != nil {
		offset = *f.Offset
	}
	return offset, f.PageSize
}

// ListReceipts returns the owner's receipts matching f, newest first, and the
// number of matching receipts ignoring pagination.
func (s *ReceiptService) ListReceipts(ctx context.Context, ownerID int, f models.ReceiptFilter) (*models.ReceiptList, error) {
	if err := ValidateReceiptFilter(f); err != nil {
		return nil, err
	}

	where := []string{"user_id = ?"}
	args := []any{ownerID}

	if f.StartDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.EndDate.UTC())
	}
	if f.MinAmount != nil {
		where = append(where, s.db.Numeric("total_amount")+" >= ?")
		args = append(args, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		where = append(where, s.db.Numeric("total_amount")+" <= ?")
		args = append(args, *f.MaxAmount)
	}
	if f.PaymentType != nil {
		where = append(where, "payment_type = ?")
		args = append(args, string(*f.PaymentType))
	}
	whereSQL := strings.Join(where, " AND ")

	var totalCount int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales_receipts WHERE "+whereSQL, args...).Scan(&totalCount)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", ownerID).Msg("Error counting receipts")
		return nil, fmt.Errorf("database error: %w", err)
	}

	offset, limit := Pagination(f)
	limitSQL := s.db.UnboundedLimit()
	pageArgs := append([]any{}, args...)
	if limit != nil {
		limitSQL = "?"
		pageArgs = append(pageArgs, *limit)
	}
	pageArgs = append(pageArgs, offset)

	query := "SELECT " + receiptColumns + " FROM sales_receipts WHERE " + whereSQL +
		" ORDER BY created_at DESC, id DESC LIMIT " + limitSQL + " OFFSET ?"

	receipts, err := s.queryReceipts(ctx, query, pageArgs...)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", ownerID).Msg("Error fetching receipts")
		return nil, err
	}

	if err := s.attachItems(ctx, receipts); err != nil {
		s.logger.Error().Err(err).Int("user_id", ownerID).Msg("Error fetching receipt items")
		return nil, err
	}

	return &models.ReceiptList{Receipts: receipts, TotalCount: totalCount}, nil
}

// GetReceipt returns the receipt only when it belongs to ownerID; receipts of
// other owners are reported as not found.
func (s *ReceiptService) GetReceipt(ctx context.Context, receiptID, ownerID int) (*models.Receipt, error) {
	receipt, err := s.GetReceiptByID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.UserID != ownerID {
		return nil, ErrReceiptNotFound
	}
	return receipt, nil
}

// GetReceiptByID loads a receipt with its items regardless of owner.
func (s *ReceiptService) GetReceiptByID(ctx context.Context, receiptID int) (*models.Receipt, error) {
	receipts, err := s.queryReceipts(ctx, "SELECT "+receiptColumns+" FROM sales_receipts WHERE id = ?", receiptID)
	if err != nil {
		s.logger.Error().Err(err).Int("receipt_id", receiptID).Msg("Error fetching receipt")
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, ErrReceiptNotFound
	}

	if err := s.attachItems(ctx, receipts); err != nil {
		s.logger.Error().Err(err).Int("receipt_id", receiptID).Msg("Error fetching receipt items")
		return nil, err
	}
	return &receipts[0], nil
}

func (s *ReceiptService) queryReceipts(ctx context.Context, query string, args ...any) ([]models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		var paymentType string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.UserID, &r.TotalAmount, &paymentType, &r.PaymentAmount); err != nil {
			return nil, fmt.Errorf("error scanning receipt: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.PaymentType = models.PaymentType(paymentType)
		r.Items = []models.LineItem{}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading receipts: %w", err)
	}
	return receipts, nil
}

// attachItems loads the line items of all receipts with one query, keeping
// insertion order within each receipt.
func (s *ReceiptService) attachItems(ctx context.Context, receipts []models.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	ids := lo.Map(receipts, func(r models.Receipt, _ int) any { return r.ID })
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sales_receipt_id, product_name, quantity, price FROM sales_items WHERE sales_receipt_id IN ("+placeholders+") ORDER BY id",
		ids...,
	)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	byReceipt := make(map[int][]models.LineItem, len(receipts))
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("error scanning line item: %w", err)
		}
		byReceipt[item.ReceiptID] = append(byReceipt[item.ReceiptID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error reading line items: %w", err)
	}

	for i := range receipts {
		if items, ok := byReceipt[receipts[i].ID]; ok {
			receipts[i].Items = items
		}
	}
	return nil
}
