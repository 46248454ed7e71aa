package pricing

import (
	"errors"

	"tradebill/internal/domain"
)

// ErrInvalidInput guards the pricing boundary. Callers validate line items
// before invoking the engine; this error only fires when that contract is
// broken.
var ErrInvalidInput = errors.New("invalid pricing input")

// ComputeTotals derives subtotal, GST amount and total from line items plus
// flat surcharges. Arithmetic runs at full floating precision; rounding to
// two decimals happens only at display time.
func ComputeTotals(items []domain.DraftItem, gstPercentage, transportCharges, extraCharges float64) (domain.Totals, error) {
	subtotal := 0.0
	for _, item := range items {
		if item.Quantity <= 0 || item.Price <= 0 {
			return domain.Totals{}, ErrInvalidInput
		}
		subtotal += item.Quantity * item.Price
	}

	gstAmount := subtotal * gstPercentage / 100
	return domain.Totals{
		Subtotal:    subtotal,
		GSTAmount:   gstAmount,
		TotalAmount: subtotal + gstAmount + transportCharges + extraCharges,
	}, nil
}

// Recompute re-derives totals from a stored bill without touching it. Report
// tooling uses this to detect drift between stored and derivable amounts.
func Recompute(bill domain.Bill) domain.Totals {
	subtotal := 0.0
	for _, item := range bill.Items {
		subtotal += item.Quantity * item.Price
	}
	gstAmount := subtotal * bill.GSTPercentage / 100
	return domain.Totals{
		Subtotal:    subtotal,
		GSTAmount:   gstAmount,
		TotalAmount: subtotal + gstAmount + bill.TransportCharges + bill.ExtraCharges,
	}
}
