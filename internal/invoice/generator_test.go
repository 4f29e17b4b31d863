package invoice_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopkart-dev/checkout-service/internal/invoice"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func paidOrder() *order.Order {
	return &order.Order{
		ID:            42,
		OrderNumber:   "ORD-20260115-000042",
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		ShippingAddress: order.Address{
			Line1:      "12 MG Road",
			City:       "Bengaluru",
			State:      "KA",
			PostalCode: "560001",
			Country:    "IN",
		},
		Subtotal:      dec("200.00"),
		Shipping:      dec("40.00"),
		GrandTotal:    dec("240.00"),
		PaymentStatus: order.PaymentPaid,
		Items: []order.OrderItem{
			{ProductName: "Cotton Kurta / Blue / M", SKU: "KUR-BL-M", Quantity: 2, Price: dec("100.00"), Total: dec("200.00")},
		},
		CreatedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	gen := invoice.NewGenerator(dir, "ShopKart Pvt Ltd")

	filename, err := gen.Generate(paidOrder())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-000042.pdf", filename)

	info, err := os.Stat(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestGenerator_Generate_SanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	gen := invoice.NewGenerator(dir, "ShopKart Pvt Ltd")

	o := paidOrder()
	o.OrderNumber = "ORD/2026\\01:15 #42"

	filename, err := gen.Generate(o)
	require.NoError(t, err)

	assert.False(t, strings.ContainsAny(filename, `/\: #`), "filename %q must be shell safe", filename)
	_, err = os.Stat(filepath.Join(dir, filename))
	require.NoError(t, err)
}

func TestGenerator_Generate_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "invoices")
	gen := invoice.NewGenerator(dir, "ShopKart Pvt Ltd")

	filename, err := gen.Generate(paidOrder())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, filename))
	require.NoError(t, err)
}

func TestGenerator_FilePath(t *testing.T) {
	dir := t.TempDir()
	gen := invoice.NewGenerator(dir, "ShopKart Pvt Ltd")

	t.Run("plain_filename_resolves_inside_dir", func(t *testing.T) {
		got, err := gen.FilePath("ORD-20260115-000042.pdf")
		require.NoError(t, err)

		absDir, err := filepath.Abs(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(absDir, "ORD-20260115-000042.pdf"), got)
	})

	t.Run("traversal_is_confined_to_dir", func(t *testing.T) {
		absDir, err := filepath.Abs(dir)
		require.NoError(t, err)

		for _, input := range []string{
			"../outside.pdf",
			"../../etc/passwd",
			"/etc/passwd",
		} {
			got, err := gen.FilePath(input)
			if err != nil {
				assert.ErrorIs(t, err, invoice.ErrPathOutsideDir, "input %q", input)
				continue
			}
			rel, relErr := filepath.Rel(absDir, got)
			require.NoError(t, relErr)
			assert.False(t, strings.HasPrefix(rel, ".."), "input %q resolved to %q outside %q", input, got, absDir)
		}
	})

	t.Run("degenerate_names_rejected", func(t *testing.T) {
		for _, input := range []string{"", ".", "/"} {
			_, err := gen.FilePath(input)
			assert.ErrorIs(t, err, invoice.ErrPathOutsideDir, "input %q", input)
		}
	})
}
