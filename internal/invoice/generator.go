package invoice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopkart-dev/checkout-service/internal/order"
	"github.com/shopspring/decimal"
)

var ErrPathOutsideDir = errors.New("invoice path escapes the invoice directory")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type Generator struct {
	dir        string
	sellerName string
}

func NewGenerator(dir, sellerName string) *Generator {
	return &Generator{dir: dir, sellerName: sellerName}
}

// Generate renders the invoice PDF for a finalized order and returns the
// filename (not the full path). It never mutates the order.
func (g *Generator) Generate(o *order.Order) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create invoice directory: %w", err)
	}

	filename := unsafeFilenameChars.ReplaceAllString(o.OrderNumber, "_") + ".pdf"
	path := filepath.Join(g.dir, filename)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "Invoice", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "Order: "+o.OrderNumber, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+o.CreatedAt.Format("02 Jan 2006 15:04"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, "Seller", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, g.sellerName, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, o.CustomerName, "", 1, "L", false, 0, "")
	if o.CustomerEmail != "" {
		pdf.CellFormat(0, 5, o.CustomerEmail, "", 1, "L", false, 0, "")
	}
	addr := o.ShippingAddress
	if addr.Line1 != "" {
		pdf.CellFormat(0, 5, addr.Line1, "", 1, "L", false, 0, "")
	}
	if addr.Line2 != "" {
		pdf.CellFormat(0, 5, addr.Line2, "", 1, "L", false, 0, "")
	}
	cityLine := addr.City + " " + addr.State + " " + addr.PostalCode
	pdf.CellFormat(0, 5, cityLine, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Items table.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(15, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(27, 7, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(28, 7, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range o.Items {
		pdf.CellFormat(80, 6, it.ProductName, "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, it.SKU, "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, strconv.Itoa(it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(27, 6, formatAmount(it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, formatAmount(it.Total), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	totalsRow := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(152, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, formatAmount(amount), "", 1, "R", false, 0, "")
	}
	totalsRow("Subtotal", o.Subtotal, false)
	totalsRow("Shipping", o.Shipping, false)
	totalsRow("Tax", o.Tax, false)
	totalsRow("Discount", o.Discount, false)
	totalsRow("Grand Total", o.GrandTotal, true)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write invoice pdf: %w", err)
	}

	return filename, nil
}

// FilePath resolves a stored invoice filename to an absolute path, refusing
// anything that would escape the invoice directory.
func (g *Generator) FilePath(filename string) (string, error) {
	if filename == "" {
		return "", ErrPathOutsideDir
	}

	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve invoice directory: %w", err)
	}

	candidate := filepath.Join(dir, filepath.Clean("/"+filename))
	rel, err := filepath.Rel(dir, candidate)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return "", ErrPathOutsideDir
	}

	return candidate, nil
}

func formatAmount(d decimal.Decimal) string {
	return "INR " + d.StringFixed(2)
}
