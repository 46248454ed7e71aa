package storage

import (
	"fmt"

	"tradebill/internal/domain"
)

// Shape checks applied to records after deserialization, before business
// logic trusts them. A dangling brand reference on a product is deliberately
// not an error; the catalog tolerates it and renders the brand as "Unknown".

func ValidateBrand(b domain.Brand) error {
	if b.ID <= 0 {
		return fmt.Errorf("brand id must be a positive number")
	}
	if b.Name == "" {
		return fmt.Errorf("brand %d: name is required", b.ID)
	}
	return nil
}

func ValidateProduct(p domain.Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("product id must be a positive number")
	}
	if p.Name == "" {
		return fmt.Errorf("product %d: name is required", p.ID)
	}
	if p.Price <= 0 {
		return fmt.Errorf("product %d: price must be positive", p.ID)
	}
	return nil
}

func ValidateBill(b domain.Bill) error {
	if b.ID <= 0 {
		return fmt.Errorf("bill id must be a positive number")
	}
	if b.BillNumber <= 0 {
		return fmt.Errorf("bill %d: billNumber must be a positive number", b.ID)
	}
	if b.Date.IsZero() {
		return fmt.Errorf("bill %d: date is required", b.ID)
	}
	if b.Items == nil {
		return fmt.Errorf("bill %d: items must be a list", b.ID)
	}
	if b.Status != domain.BillStatusActive && b.Status != domain.BillStatusCancelled {
		return fmt.Errorf("bill %d: unknown status %q", b.ID, b.Status)
	}
	if b.Status == domain.BillStatusCancelled && b.CancellationDate == nil {
		return fmt.Errorf("bill %d: cancelled without cancellation date", b.ID)
	}
	return nil
}
