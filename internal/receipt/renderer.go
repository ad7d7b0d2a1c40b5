// Package receipt renders 80mm thermal-ticket PDFs for sales and debt
// payments. It is pure layout: no business data is read or written beyond
// the single output file.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// 80mm ticket geometry, in points.
const (
	pageWidth  = 226.77
	pageHeight = 841.89
	marginX    = 10
	usableW    = pageWidth - 2*marginX
)

type Config struct {
	Dir       string
	StoreName string
	StoreAddr string
}

type Renderer struct {
	cfg Config
}

func NewRenderer(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Item is one printed line on a sale ticket.
type Item struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

// SaleTicket is the payload for a sale document.
type SaleTicket struct {
	ReceiptRef     string
	PaymentMethod  string
	Items          []Item
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	When           time.Time
}

// PaymentTicket is the payload for a debt-payment document.
type PaymentTicket struct {
	ReceiptRef    string
	CustomerName  string
	NationalID    string
	PaymentMethod string
	BalanceBefore decimal.Decimal
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	When          time.Time
}

// SaleFileName builds the receipt file name persisted with a sale before the
// document exists.
func SaleFileName(when time.Time) string {
	return fmt.Sprintf("venta_%d.pdf", when.UnixMilli())
}

// PaymentFileName builds the receipt file name for a payment document.
func PaymentFileName(when time.Time) string {
	return fmt.Sprintf("pago_%d.pdf", when.UnixMilli())
}

// RenderSale writes the sale ticket and returns the file name.
func (r *Renderer) RenderSale(t SaleTicket) (string, error) {
	fileName := t.ReceiptRef
	if fileName == "" {
		fileName = SaleFileName(t.When)
	}

	pdf := newTicket()
	writeHeader(pdf, r.cfg, "PRESUPUESTO")

	ref := shortRef(fileName)
	kv(pdf, fmt.Sprintf("Fecha: %s  Hora: %s", t.When.Format("02/01/2006"), t.When.Format("15:04")), "")
	kv(pdf, fmt.Sprintf("Nº: %s", ref), "")
	kv(pdf, fmt.Sprintf("Forma de Pago: %s", t.PaymentMethod), "")
	separator(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.cell(30, 10, "Cant.", 0, "L")
	pdf.cell(100, 10, "Producto", 0, "L")
	pdf.cell(usableW-130, 10, "Total", 1, "R")
	separator(pdf)

	pdf.SetFont("Helvetica", "", 8)
	articles := decimal.Zero
	for _, item := range t.Items {
		lineTotal := item.UnitPrice.Mul(item.Quantity)
		articles = articles.Add(item.Quantity)

		pdf.cell(30, 10, item.Quantity.String(), 0, "L")
		pdf.cell(100, 10, item.Name, 0, "L")
		pdf.cell(usableW-130, 10, "$"+lineTotal.StringFixed(2), 1, "R")

		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(102, 102, 102)
		pdf.cell(30, 9, "", 0, "L")
		pdf.cell(100, 9, "$"+item.UnitPrice.StringFixed(2)+" c/u", 1, "L")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 8)
	}
	separator(pdf)

	kv(pdf, "Cant. Artículos:", articles.String())
	kv(pdf, "Subtotal:", "$"+t.Subtotal.StringFixed(2))
	kv(pdf, "Descuento:", "$"+t.DiscountAmount.StringFixed(2))

	pdf.SetFont("Helvetica", "B", 10)
	kv(pdf, "TOTAL:", "$"+t.Total.StringFixed(2))
	separator(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.cell(usableW, 10, "Forma de Pago:", 1, "L")
	pdf.SetFont("Helvetica", "", 8)
	kv(pdf, t.PaymentMethod+":", "$"+t.Total.StringFixed(2))

	writeFooter(pdf, "¡Gracias por su compra!")
	return fileName, r.save(pdf, fileName)
}

// RenderPayment writes the payment ticket and returns the file name.
func (r *Renderer) RenderPayment(t PaymentTicket) (string, error) {
	fileName := t.ReceiptRef
	if fileName == "" {
		fileName = PaymentFileName(t.When)
	}

	pdf := newTicket()
	writeHeader(pdf, r.cfg, "COMPROBANTE DE PAGO")

	nationalID := t.NationalID
	if nationalID == "" {
		nationalID = "No especificado"
	}

	kv(pdf, fmt.Sprintf("Fecha: %s  Hora: %s", t.When.Format("02/01/2006"), t.When.Format("15:04")), "")
	kv(pdf, fmt.Sprintf("Nº: %s", shortRef(fileName)), "")
	kv(pdf, fmt.Sprintf("Cliente: %s", t.CustomerName), "")
	kv(pdf, fmt.Sprintf("DNI: %s", nationalID), "")
	separator(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.cell(usableW, 10, "DETALLES DEL PAGO", 1, "C")
	pdf.SetFont("Helvetica", "", 8)

	kv(pdf, "Deuda anterior:", "$"+t.BalanceBefore.StringFixed(2))
	kv(pdf, "Monto pagado:", "$"+t.Amount.StringFixed(2))
	kv(pdf, "Deuda restante:", "$"+t.BalanceAfter.StringFixed(2))
	separator(pdf)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.cell(usableW, 10, "Forma de Pago:", 1, "L")
	pdf.SetFont("Helvetica", "", 8)
	kv(pdf, t.PaymentMethod+":", "$"+t.Amount.StringFixed(2))

	writeFooter(pdf, "¡Gracias por su pago!")
	return fileName, r.save(pdf, fileName)
}

func (r *Renderer) save(pdf *ticket, fileName string) error {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create receipts dir: %w", err)
	}
	path := filepath.Join(r.cfg.Dir, fileName)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write receipt %s: %w", fileName, err)
	}
	return nil
}

// ticket couples the document with the cp1252 translator the core fonts
// need for accented text.
type ticket struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func newTicket() *ticket {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(marginX, marginX, marginX)
	pdf.SetAutoPageBreak(false, marginX)
	pdf.SetCellMargin(0)
	pdf.AddPage()
	return &ticket{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// cell prints one translated cell.
func (t *ticket) cell(w, h float64, txt string, ln int, align string) {
	t.CellFormat(w, h, t.tr(txt), "", ln, align, false, 0, "")
}

func writeHeader(pdf *ticket, cfg Config, docType string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.cell(usableW, 14, cfg.StoreName, 1, "C")

	pdf.SetFont("Helvetica", "", 8)
	pdf.cell(usableW, 11, cfg.StoreAddr, 1, "C")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.cell(usableW, 12, docType, 1, "C")

	pdf.SetFont("Helvetica", "", 7)
	pdf.cell(usableW, 10, "Comprobante No Válido como Factura", 1, "C")

	separator(pdf)
	pdf.SetFont("Helvetica", "", 8)
}

func writeFooter(pdf *ticket, thanks string) {
	separator(pdf)
	pdf.SetFont("Helvetica", "", 7)
	pdf.cell(usableW, 10, thanks, 1, "C")
	pdf.SetFont("Helvetica", "", 6)
	pdf.cell(usableW, 9, "Este comprobante no es válido como factura", 1, "C")
}

// kv prints a left label and, when non-empty, a right-aligned value.
func kv(pdf *ticket, label, value string) {
	if value == "" {
		pdf.cell(usableW, 11, label, 1, "L")
		return
	}
	pdf.cell(120, 11, label, 0, "L")
	pdf.cell(usableW-120, 11, value, 1, "R")
}

func separator(pdf *ticket) {
	y := pdf.GetY() + 4
	pdf.Line(marginX, y, pageWidth-marginX, y)
	pdf.SetY(y + 4)
}

// shortRef derives the printed receipt number from the file name, mirroring
// the timestamp prefix.
func shortRef(fileName string) string {
	base := fileName
	for _, prefix := range []string{"venta_", "pago_"} {
		if len(base) > len(prefix) && base[:len(prefix)] == prefix {
			base = base[len(prefix):]
		}
	}
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if len(base) > 7 {
		base = base[:7]
	}
	return base
}
