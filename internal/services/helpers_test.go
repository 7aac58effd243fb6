package services

import (
	"context"
	"testing"
	"time"

	"receipts-api/internal/config"
	"receipts-api/internal/db"
	"receipts-api/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testEnv struct {
	db       *db.Database
	auth     *AuthService
	users    *UserService
	receipts *ReceiptService
	renderer *ReceiptRenderer
	gate     *AccessGate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	database, err := db.InitDB(ctx, "sqlite", ":memory:")
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.RunMigrations(ctx, database))
	t.Cleanup(func() { database.Close() })

	logger := zerolog.Nop()
	auth := NewAuthService(testSecret, 30*time.Minute, bcrypt.MinCost, logger)
	users := NewUserService(database, auth, logger)
	receipts := NewReceiptService(database, logger)

	return &testEnv{
		db:       database,
		auth:     auth,
		users:    users,
		receipts: receipts,
		renderer: NewReceiptRenderer(receipts, users, defaultLabels(), logger),
		gate:     NewAccessGate(auth, users),
	}
}

func defaultLabels() config.ReceiptConfig {
	return config.ReceiptConfig{
		Timezone:      "UTC",
		SellerPrefix:  "ФОП",
		UnknownSeller: "Невідомий користувач",
		TotalLabel:    "СУМА",
		ChangeLabel:   "Решта",
		ThankYou:      "Дякуємо за покупку!",
	}
}

func (e *testEnv) registerUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), &models.RegisterRequest{
		Name:     "Test Seller",
		Username: username,
		Password: "Test1234!",
	})
	require.NoError(t, err, "failed to register %s", username)
	return user
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func product(name, price, quantity string) models.ProductRequest {
	return models.ProductRequest{Name: name, Price: nullDec(price), Quantity: nullDec(quantity)}
}

func receiptRequest(paymentType models.PaymentType, amount string, products ...models.ProductRequest) *models.CreateReceiptRequest {
	return &models.CreateReceiptRequest{
		Products: products,
		Payment:  models.PaymentRequest{Type: paymentType, Amount: nullDec(amount)},
	}
}

func ptr[T any](v T) *T {
	return &v
}
