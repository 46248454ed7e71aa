package backup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradebill/internal/domain"
	"tradebill/internal/kvstore"
	"tradebill/internal/kvstore/memory"
	"tradebill/internal/storage"
)

// flakyKV wraps a real store and fails writes or reads of chosen keys to
// drive the partial-failure paths.
type flakyKV struct {
	inner          kvstore.KV
	failSetKeys    map[string]bool
	failGetKeys    map[string]bool
	failRemoveKeys map[string]bool
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, error) {
	if f.failGetKeys[key] {
		return "", errors.New("injected read failure")
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value string) error {
	if f.failSetKeys[key] {
		return errors.New("injected write failure")
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyKV) Remove(ctx context.Context, key string) error {
	if f.failRemoveKeys[key] {
		return errors.New("injected remove failure")
	}
	return f.inner.Remove(ctx, key)
}

func seededAdapter(t *testing.T) *storage.Adapter {
	t.Helper()
	st := storage.New(memory.New())
	ctx := context.Background()

	if err := st.SaveBrands(ctx, []domain.Brand{{ID: 1, Name: "UltraTech"}}); err != nil {
		t.Fatalf("seed brands: %v", err)
	}
	if err := st.SaveProducts(ctx, []domain.Product{{ID: 10, BrandID: 1, Name: "Cement Bag", Price: 420}}); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	if err := st.SaveBills(ctx, []domain.Bill{{
		ID: 100, BillNumber: 1, Date: time.Now(),
		Items:  []domain.BillItem{},
		Status: domain.BillStatusActive,
	}}); err != nil {
		t.Fatalf("seed bills: %v", err)
	}
	if err := st.SaveStaff(ctx, []domain.Staff{{ID: 5, Name: "Kavya", Mobile: "9000000001", Role: "Sales"}}); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	if err := st.SetCounter(ctx, 7); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
	return st
}

func TestSnapshotCapturesEverything(t *testing.T) {
	st := seededAdapter(t)
	coordinator := New(st, memory.New(), nil)

	doc, err := coordinator.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if len(doc.Brands) != 1 || len(doc.Products) != 1 || len(doc.Bills) != 1 || len(doc.Staff) != 1 {
		t.Fatalf("snapshot missing collections: %+v", doc)
	}
	if doc.CurrentBillNumber != 7 {
		t.Fatalf("expected counter 7 in snapshot, got %d", doc.CurrentBillNumber)
	}
	if doc.Version != Version {
		t.Fatalf("expected version %q, got %q", Version, doc.Version)
	}
	if doc.Timestamp == "" {
		t.Fatalf("expected snapshot to be timestamped")
	}
}

func TestFileNameSlugsBusinessName(t *testing.T) {
	clock := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	coordinator := New(storage.New(memory.New()), memory.New(), func() time.Time { return clock })

	got := coordinator.FileName("  Sharma   Hardware Stores ")
	if got != "sharma-hardware-stores-backup-2026-03-15.json" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	st := seededAdapter(t)
	coordinator := New(st, memory.New(), nil)
	ctx := context.Background()

	doc, err := coordinator.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Wreck the live data, then restore.
	if err := st.SaveBrands(ctx, nil); err != nil {
		t.Fatalf("clear brands: %v", err)
	}
	if err := st.SetCounter(ctx, 99); err != nil {
		t.Fatalf("bump counter: %v", err)
	}

	if err := coordinator.Restore(ctx, doc); err != nil {
		t.Fatalf("restore: %v", err)
	}

	brands, err := st.Brands(ctx)
	if err != nil {
		t.Fatalf("brands: %v", err)
	}
	if len(brands) != 1 || brands[0].Name != "UltraTech" {
		t.Fatalf("brands not restored: %+v", brands)
	}
	counter, err := st.Counter(ctx)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if counter != 7 {
		t.Fatalf("counter not restored, got %d", counter)
	}
}

func TestRestoreRejectsMissingEnvelope(t *testing.T) {
	st := seededAdapter(t)
	coordinator := New(st, memory.New(), nil)
	ctx := context.Background()

	doc, err := coordinator.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	doc.Version = ""

	if err := coordinator.Restore(ctx, doc); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}

	// Nothing should have been written.
	counter, err := st.Counter(ctx)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if counter != 7 {
		t.Fatalf("rejected restore touched the counter: %d", counter)
	}
}

func TestRestoreRejectsStructurallyInvalidDocument(t *testing.T) {
	coordinator := New(storage.New(memory.New()), memory.New(), nil)

	doc := domain.BackupDocument{
		Brands:            []domain.Brand{{ID: 0, Name: ""}},
		CurrentBillNumber: 1,
		Timestamp:         time.Now().Format(time.RFC3339),
		Version:           Version,
	}
	if err := coordinator.Restore(context.Background(), doc); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestRestoreCoercesCounterBelowOne(t *testing.T) {
	st := storage.New(memory.New())
	coordinator := New(st, memory.New(), nil)
	ctx := context.Background()

	doc := domain.BackupDocument{
		CurrentBillNumber: 0,
		Timestamp:         time.Now().Format(time.RFC3339),
		Version:           Version,
	}
	if err := coordinator.Restore(ctx, doc); err != nil {
		t.Fatalf("restore: %v", err)
	}

	counter, err := st.Counter(ctx)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if counter != 1 {
		t.Fatalf("expected counter coerced to 1, got %d", counter)
	}
}

func TestRestoreRollsBackOnPartialFailure(t *testing.T) {
	base := memory.New()
	kv := &flakyKV{inner: base, failSetKeys: map[string]bool{storage.KeyStaff: true}}
	st := storage.New(kv)
	ctx := context.Background()

	if err := st.SaveBrands(ctx, []domain.Brand{{ID: 1, Name: "Original"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	coordinator := New(st, memory.New(), nil)
	doc := domain.BackupDocument{
		Brands:            []domain.Brand{{ID: 2, Name: "Incoming"}},
		Staff:             []domain.Staff{{ID: 5, Name: "Kavya", Mobile: "9000000001", Role: "Sales"}},
		CurrentBillNumber: 3,
		Timestamp:         time.Now().Format(time.RFC3339),
		Version:           Version,
	}

	err := coordinator.Restore(ctx, doc)
	if !errors.Is(err, ErrRestoreFailed) {
		t.Fatalf("expected ErrRestoreFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "recovered") {
		t.Fatalf("expected recovery counts in error, got %q", err.Error())
	}

	// Brands were written before the failure and must be rolled back.
	brands, brandsErr := st.Brands(ctx)
	if brandsErr != nil {
		t.Fatalf("brands: %v", brandsErr)
	}
	if len(brands) != 1 || brands[0].Name != "Original" {
		t.Fatalf("rollback did not restore brands: %+v", brands)
	}
}

func TestRestoreUnreadableRecoverySlotIsCritical(t *testing.T) {
	base := memory.New()
	kv := &flakyKV{inner: base, failSetKeys: map[string]bool{storage.KeyBills: true}}
	st := storage.New(kv)

	session := &flakyKV{inner: memory.New(), failGetKeys: map[string]bool{"clearBackup": true}}
	coordinator := New(st, session, nil)

	doc := domain.BackupDocument{
		Bills:             []domain.Bill{},
		CurrentBillNumber: 1,
		Timestamp:         time.Now().Format(time.RFC3339),
		Version:           Version,
	}

	err := coordinator.Restore(context.Background(), doc)
	if !errors.Is(err, ErrCritical) {
		t.Fatalf("expected ErrCritical when the recovery slot is unreadable, got %v", err)
	}
}

func TestClearAllRollsBackOnRemoveFailure(t *testing.T) {
	base := memory.New()
	kv := &flakyKV{inner: base, failRemoveKeys: map[string]bool{storage.KeyStaff: true}}
	st := storage.New(kv)
	ctx := context.Background()

	if err := st.SaveBrands(ctx, []domain.Brand{{ID: 1, Name: "UltraTech"}}); err != nil {
		t.Fatalf("seed brands: %v", err)
	}
	if err := st.SaveBills(ctx, []domain.Bill{{
		ID: 100, BillNumber: 1, Date: time.Now(),
		Items:  []domain.BillItem{},
		Status: domain.BillStatusActive,
	}}); err != nil {
		t.Fatalf("seed bills: %v", err)
	}
	if err := st.SetCounter(ctx, 7); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	coordinator := New(st, memory.New(), nil)

	err := coordinator.ClearAll(ctx)
	if !errors.Is(err, ErrRestoreFailed) {
		t.Fatalf("expected ErrRestoreFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "recovered") {
		t.Fatalf("expected recovery counts in error, got %q", err.Error())
	}

	// Brands and bills were removed before the failure and must come back.
	brands, brandsErr := st.Brands(ctx)
	if brandsErr != nil {
		t.Fatalf("brands: %v", brandsErr)
	}
	if len(brands) != 1 || brands[0].Name != "UltraTech" {
		t.Fatalf("rollback did not restore brands: %+v", brands)
	}
	bills, billsErr := st.Bills(ctx)
	if billsErr != nil {
		t.Fatalf("bills: %v", billsErr)
	}
	if len(bills) != 1 || bills[0].ID != 100 {
		t.Fatalf("rollback did not restore bills: %+v", bills)
	}
	counter, counterErr := st.Counter(ctx)
	if counterErr != nil {
		t.Fatalf("counter: %v", counterErr)
	}
	if counter != 7 {
		t.Fatalf("rollback did not restore the counter, got %d", counter)
	}
}

func TestClearAllRemovesCollectionsAndCounter(t *testing.T) {
	st := seededAdapter(t)
	coordinator := New(st, memory.New(), nil)
	ctx := context.Background()

	if err := coordinator.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	brands, err := st.Brands(ctx)
	if err != nil {
		t.Fatalf("brands: %v", err)
	}
	if len(brands) != 0 {
		t.Fatalf("brands survived the clear: %+v", brands)
	}
	counter, err := st.Counter(ctx)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if counter != 1 {
		t.Fatalf("expected counter back at 1 after clear, got %d", counter)
	}
}
