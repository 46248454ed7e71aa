package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tradebill/internal/domain"
	"tradebill/internal/kvstore"
	"tradebill/internal/storage"
)

const Version = "1.0"

// recoveryKey is the session-slot key holding the pre-operation snapshot
// while a destructive operation is in flight. It is discarded on success.
const recoveryKey = "clearBackup"

var (
	ErrFormat        = errors.New("invalid backup format")
	ErrRestoreFailed = errors.New("restore failed")
	ErrCritical      = errors.New("critical recovery failure")
)

// Coordinator snapshots all four collections plus the sequence counter into
// one versioned document and runs the destructive operations (restore, clear)
// as snapshot-then-commit: live data is copied to a transient session slot
// first, and a partial failure rolls back from that slot.
type Coordinator struct {
	storage *storage.Adapter
	session kvstore.KV
	now     func() time.Time
}

func New(st *storage.Adapter, session kvstore.KV, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{storage: st, session: session, now: now}
}

func (c *Coordinator) Snapshot(ctx context.Context) (domain.BackupDocument, error) {
	brands, err := c.storage.Brands(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	products, err := c.storage.Products(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	bills, err := c.storage.Bills(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	staff, err := c.storage.Staff(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}
	counter, err := c.storage.Counter(ctx)
	if err != nil {
		return domain.BackupDocument{}, err
	}

	return domain.BackupDocument{
		Brands:            brands,
		Products:          products,
		Bills:             bills,
		Staff:             staff,
		CurrentBillNumber: counter,
		Timestamp:         c.now().UTC().Format(time.RFC3339),
		Version:           Version,
	}, nil
}

// FileName builds the download name for a snapshot taken now:
// <business-name>-backup-<YYYY-MM-DD>.json.
func (c *Coordinator) FileName(businessName string) string {
	slug := strings.ToLower(strings.TrimSpace(businessName))
	slug = strings.Join(strings.Fields(slug), "-")
	if slug == "" {
		slug = "tradebill"
	}
	return fmt.Sprintf("%s-backup-%s.json", slug, c.now().Format("2006-01-02"))
}

// Validate structurally checks an incoming document. It reports false rather
// than failing, logging the first mismatch it finds.
func (c *Coordinator) Validate(doc domain.BackupDocument) bool {
	for _, brand := range doc.Brands {
		if err := storage.ValidateBrand(brand); err != nil {
			log.Printf("[backup] invalid document: %v", err)
			return false
		}
	}
	for _, product := range doc.Products {
		if err := storage.ValidateProduct(product); err != nil {
			log.Printf("[backup] invalid document: %v", err)
			return false
		}
	}
	for _, bill := range doc.Bills {
		if err := storage.ValidateBill(bill); err != nil {
			log.Printf("[backup] invalid document: %v", err)
			return false
		}
	}
	return true
}

// Restore replaces all live data with the document's contents. The previous
// live state is parked in the session slot and written back wholesale if any
// collection write fails.
func (c *Coordinator) Restore(ctx context.Context, doc domain.BackupDocument) error {
	if doc.Version == "" || doc.Timestamp == "" {
		return fmt.Errorf("%w: version and timestamp are required", ErrFormat)
	}
	if !c.Validate(doc) {
		return fmt.Errorf("%w: document failed structural validation", ErrFormat)
	}
	if doc.CurrentBillNumber < 1 {
		doc.CurrentBillNumber = 1
	}

	if err := c.parkRecovery(ctx); err != nil {
		return fmt.Errorf("%w: saving recovery snapshot: %v", ErrRestoreFailed, err)
	}

	if failedKey, err := c.applyDocument(ctx, doc); err != nil {
		restored, total, recoverErr := c.recoverFromSlot(ctx)
		if recoverErr != nil {
			return recoverErr
		}
		return fmt.Errorf("%w: writing %s: %v (recovered %d/%d collections)", ErrRestoreFailed, failedKey, err, restored, total)
	}

	c.discardRecovery(ctx)
	return nil
}

// ClearAll removes all four collections and the sequence counter. On failure
// it restores whatever it can from the session slot.
func (c *Coordinator) ClearAll(ctx context.Context) error {
	if err := c.parkRecovery(ctx); err != nil {
		return fmt.Errorf("%w: saving recovery snapshot: %v", ErrRestoreFailed, err)
	}

	for _, key := range storage.CollectionKeys {
		if err := c.storage.Remove(ctx, key); err != nil {
			restored, total, recoverErr := c.recoverFromSlot(ctx)
			if recoverErr != nil {
				return recoverErr
			}
			return fmt.Errorf("%w: clearing %s: %v (recovered %d/%d collections)", ErrRestoreFailed, key, err, restored, total)
		}
	}

	c.discardRecovery(ctx)
	return nil
}

func (c *Coordinator) parkRecovery(ctx context.Context) error {
	recovery, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(recovery)
	if err != nil {
		return err
	}
	return c.session.Set(ctx, recoveryKey, string(payload))
}

// recoverFromSlot writes the parked snapshot back, returning how many of the
// five keys it managed to restore. An unreadable slot is unrecoverable.
func (c *Coordinator) recoverFromSlot(ctx context.Context) (restored int, total int, err error) {
	total = len(storage.CollectionKeys)

	raw, readErr := c.session.Get(ctx, recoveryKey)
	if readErr != nil {
		return 0, total, fmt.Errorf("%w: recovery snapshot unreadable: %v", ErrCritical, readErr)
	}
	var recovery domain.BackupDocument
	if decodeErr := json.Unmarshal([]byte(raw), &recovery); decodeErr != nil {
		return 0, total, fmt.Errorf("%w: recovery snapshot corrupt: %v", ErrCritical, decodeErr)
	}

	writes := []func() error{
		func() error { return c.storage.SaveBrands(ctx, recovery.Brands) },
		func() error { return c.storage.SaveProducts(ctx, recovery.Products) },
		func() error { return c.storage.SaveBills(ctx, recovery.Bills) },
		func() error { return c.storage.SaveStaff(ctx, recovery.Staff) },
		func() error { return c.storage.SetCounter(ctx, recovery.CurrentBillNumber) },
	}
	for _, write := range writes {
		if writeErr := write(); writeErr != nil {
			log.Printf("[backup] WARN: partial recovery: %v", writeErr)
			continue
		}
		restored++
	}
	return restored, total, nil
}

func (c *Coordinator) applyDocument(ctx context.Context, doc domain.BackupDocument) (string, error) {
	if err := c.storage.SaveBrands(ctx, doc.Brands); err != nil {
		return storage.KeyBrands, err
	}
	if err := c.storage.SaveProducts(ctx, doc.Products); err != nil {
		return storage.KeyProducts, err
	}
	if err := c.storage.SaveBills(ctx, doc.Bills); err != nil {
		return storage.KeyBills, err
	}
	if err := c.storage.SaveStaff(ctx, doc.Staff); err != nil {
		return storage.KeyStaff, err
	}
	if err := c.storage.SetCounter(ctx, doc.CurrentBillNumber); err != nil {
		return storage.KeyCounter, err
	}
	return "", nil
}

func (c *Coordinator) discardRecovery(ctx context.Context) {
	if err := c.session.Remove(ctx, recoveryKey); err != nil {
		log.Printf("[backup] WARN: failed to discard recovery snapshot: %v", err)
	}
}
