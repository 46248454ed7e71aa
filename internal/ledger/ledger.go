package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"tradebill/internal/domain"
	"tradebill/internal/pricing"
	"tradebill/internal/sequence"
	"tradebill/internal/storage"
)

var (
	ErrNotFound         = errors.New("bill not found")
	ErrValidation       = errors.New("invalid bill input")
	ErrAlreadyCancelled = errors.New("bill already cancelled")
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Ledger is the append-and-cancel-only store of bill documents. A bill is
// frozen at creation; the single permitted mutation is the one-way
// ACTIVE -> CANCELLED transition.
type Ledger struct {
	storage *storage.Adapter
	seq     *sequence.Sequencer
	now     func() time.Time
}

func New(st *storage.Adapter, seq *sequence.Sequencer, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{storage: st, seq: seq, now: now}
}

// Create validates the draft, derives totals, issues the next bill number
// and appends the bill to the persisted collection.
func (l *Ledger) Create(ctx context.Context, draft domain.DraftBill) (domain.Bill, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Bill{}, err
	}

	var staff *domain.Staff
	if draft.StaffID != 0 {
		found, err := l.lookupStaff(ctx, draft.StaffID)
		if err != nil {
			return domain.Bill{}, err
		}
		staff = found
	}

	totals, err := pricing.ComputeTotals(draft.Items, draft.GSTPercentage, draft.TransportCharges, draft.ExtraCharges)
	if err != nil {
		return domain.Bill{}, err
	}

	bills, err := l.storage.Bills(ctx)
	if err != nil {
		return domain.Bill{}, err
	}

	number, err := l.seq.Issue(ctx)
	if err != nil {
		return domain.Bill{}, err
	}

	now := l.now()
	items := make([]domain.BillItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		productID := item.ProductID
		if productID == "" {
			productID = fmt.Sprintf("manual-%d", now.UnixMilli())
		}
		items = append(items, domain.BillItem{
			ProductID:   productID,
			BrandName:   item.BrandName,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			ItemTotal:   item.Quantity * item.Price,
		})
	}

	bill := domain.Bill{
		ID:               uniqueBillID(bills, now.UnixMilli()),
		BillNumber:       number,
		Date:             now,
		Customer:         trimmedCustomer(draft.Customer),
		Staff:            staff,
		Items:            items,
		Subtotal:         totals.Subtotal,
		GSTPercentage:    draft.GSTPercentage,
		GSTAmount:        totals.GSTAmount,
		TransportCharges: draft.TransportCharges,
		ExtraCharges:     draft.ExtraCharges,
		TotalAmount:      totals.TotalAmount,
		Status:           domain.BillStatusActive,
	}

	bills = append(bills, bill)
	if err := l.storage.SaveBills(ctx, bills); err != nil {
		return domain.Bill{}, err
	}
	return bill, nil
}

// Cancel marks a bill CANCELLED and stamps the cancellation date. Cancelling
// twice is rejected, not ignored.
func (l *Ledger) Cancel(ctx context.Context, billID int64) (domain.Bill, error) {
	bills, err := l.storage.Bills(ctx)
	if err != nil {
		return domain.Bill{}, err
	}

	idx := -1
	for i := range bills {
		if bills[i].ID == billID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Bill{}, fmt.Errorf("%w: id %d", ErrNotFound, billID)
	}
	if bills[idx].Status == domain.BillStatusCancelled {
		return domain.Bill{}, fmt.Errorf("%w: id %d", ErrAlreadyCancelled, billID)
	}

	cancelledAt := l.now()
	bills[idx].Status = domain.BillStatusCancelled
	bills[idx].CancellationDate = &cancelledAt

	if err := l.storage.SaveBills(ctx, bills); err != nil {
		return domain.Bill{}, err
	}
	return bills[idx], nil
}

// List returns every bill, newest date first.
func (l *Ledger) List(ctx context.Context) ([]domain.Bill, error) {
	bills, err := l.storage.Bills(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(bills)
	return bills, nil
}

func (l *Ledger) FindByID(ctx context.Context, billID int64) (domain.Bill, error) {
	bills, err := l.storage.Bills(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	for _, bill := range bills {
		if bill.ID == billID {
			return bill, nil
		}
	}
	return domain.Bill{}, fmt.Errorf("%w: id %d", ErrNotFound, billID)
}

// FindByNumber returns the newest bill carrying the given number. Numbers
// are not unique after a sequence reset, so newest wins.
func (l *Ledger) FindByNumber(ctx context.Context, number int64) (domain.Bill, error) {
	bills, err := l.storage.Bills(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	sortNewestFirst(bills)
	for _, bill := range bills {
		if bill.BillNumber == number {
			return bill, nil
		}
	}
	return domain.Bill{}, fmt.Errorf("%w: number %d", ErrNotFound, number)
}

func (l *Ledger) lookupStaff(ctx context.Context, staffID int64) (*domain.Staff, error) {
	staff, err := l.storage.Staff(ctx)
	if err != nil {
		return nil, err
	}
	for _, member := range staff {
		if member.ID == staffID {
			// Denormalized copy: later staff edits must not rewrite history.
			snapshot := member
			return &snapshot, nil
		}
	}
	return nil, fmt.Errorf("%w: staff %d", ErrNotFound, staffID)
}

func validateDraft(draft domain.DraftBill) error {
	customer := trimmedCustomer(draft.Customer)
	if customer.Name == "" || customer.Address == "" {
		return fmt.Errorf("%w: customer name and address are required", ErrValidation)
	}
	if !mobilePattern.MatchString(customer.Mobile) {
		return fmt.Errorf("%w: customer mobile must be a 10-digit number", ErrValidation)
	}
	if len(draft.Items) == 0 {
		return fmt.Errorf("%w: bill needs at least one item", ErrValidation)
	}
	for i, item := range draft.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return fmt.Errorf("%w: item %d: product name is required", ErrValidation, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrValidation, i+1)
		}
		if item.Price <= 0 {
			return fmt.Errorf("%w: item %d: price must be positive", ErrValidation, i+1)
		}
	}
	if draft.GSTPercentage < 0 || draft.GSTPercentage > 100 {
		return fmt.Errorf("%w: gst percentage must be between 0 and 100", ErrValidation)
	}
	if draft.TransportCharges < 0 || draft.ExtraCharges < 0 {
		return fmt.Errorf("%w: surcharges must not be negative", ErrValidation)
	}
	return nil
}

func trimmedCustomer(c domain.Customer) domain.Customer {
	return domain.Customer{
		Name:    strings.TrimSpace(c.Name),
		Mobile:  strings.TrimSpace(c.Mobile),
		Address: strings.TrimSpace(c.Address),
	}
}

// uniqueBillID keeps the millisecond-timestamp primary key usable when two
// bills land in the same millisecond.
func uniqueBillID(bills []domain.Bill, candidate int64) int64 {
	taken := make(map[int64]struct{}, len(bills))
	for _, bill := range bills {
		taken[bill.ID] = struct{}{}
	}
	for {
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
		candidate++
	}
}

func sortNewestFirst(bills []domain.Bill) {
	slices.SortFunc(bills, func(a, b domain.Bill) int {
		if a.Date.Equal(b.Date) {
			switch {
			case a.ID > b.ID:
				return -1
			case a.ID < b.ID:
				return 1
			default:
				return 0
			}
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
}
