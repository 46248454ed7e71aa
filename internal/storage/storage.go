package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"tradebill/internal/domain"
	"tradebill/internal/kvstore"
)

// Storage keys. Each collection lives under its own key with no transactional
// guarantee across keys; consumers that touch several keys in one operation
// are responsible for their own recovery path.
const (
	KeyBrands   = "brands"
	KeyProducts = "products"
	KeyBills    = "bills"
	KeyStaff    = "staff"
	KeyCounter  = "currentBillNumber"
	KeyVersion  = "appVersion"
)

// CollectionKeys lists every key wiped by a version bump or a clear-all, in
// the order destructive operations walk them.
var CollectionKeys = []string{KeyBrands, KeyProducts, KeyBills, KeyStaff, KeyCounter}

// Adapter wraps the raw KV medium with typed reads and writes. Reads of
// absent collections fall back to empty; malformed documents are rejected
// rather than trusted.
type Adapter struct {
	kv kvstore.KV
}

func New(kv kvstore.KV) *Adapter {
	return &Adapter{kv: kv}
}

func (a *Adapter) Brands(ctx context.Context) ([]domain.Brand, error) {
	return loadList[domain.Brand](ctx, a.kv, KeyBrands)
}

func (a *Adapter) SaveBrands(ctx context.Context, brands []domain.Brand) error {
	return saveList(ctx, a.kv, KeyBrands, brands)
}

func (a *Adapter) Products(ctx context.Context) ([]domain.Product, error) {
	return loadList[domain.Product](ctx, a.kv, KeyProducts)
}

func (a *Adapter) SaveProducts(ctx context.Context, products []domain.Product) error {
	return saveList(ctx, a.kv, KeyProducts, products)
}

func (a *Adapter) Bills(ctx context.Context) ([]domain.Bill, error) {
	return loadList[domain.Bill](ctx, a.kv, KeyBills)
}

func (a *Adapter) SaveBills(ctx context.Context, bills []domain.Bill) error {
	return saveList(ctx, a.kv, KeyBills, bills)
}

func (a *Adapter) Staff(ctx context.Context) ([]domain.Staff, error) {
	return loadList[domain.Staff](ctx, a.kv, KeyStaff)
}

func (a *Adapter) SaveStaff(ctx context.Context, staff []domain.Staff) error {
	return saveList(ctx, a.kv, KeyStaff, staff)
}

// Counter reads the bill-number sequence. Absent or unparseable values fall
// back to 1, matching how the counter behaves on first use.
func (a *Adapter) Counter(ctx context.Context) (int64, error) {
	raw, err := a.kv.Get(ctx, KeyCounter)
	if err != nil {
		if err == kvstore.ErrNotFound {
			return 1, nil
		}
		return 0, fmt.Errorf("read %s: %w", KeyCounter, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		log.Printf("[storage] WARN: counter value %q unparseable, falling back to 1", raw)
		return 1, nil
	}
	return n, nil
}

func (a *Adapter) SetCounter(ctx context.Context, n int64) error {
	if err := a.kv.Set(ctx, KeyCounter, strconv.FormatInt(n, 10)); err != nil {
		return fmt.Errorf("write %s: %w", KeyCounter, err)
	}
	return nil
}

func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.kv.Remove(ctx, key)
}

// EnsureVersion wipes every collection and the counter when the stored app
// version differs from the running one, then records the running version.
// First boot counts as a mismatch; the wipe is a no-op there.
func (a *Adapter) EnsureVersion(ctx context.Context, version string) error {
	stored, err := a.kv.Get(ctx, KeyVersion)
	if err != nil && err != kvstore.ErrNotFound {
		return fmt.Errorf("read %s: %w", KeyVersion, err)
	}
	if stored == version {
		return nil
	}

	log.Printf("[storage] app version changed (%q -> %q), clearing stored data", stored, version)
	for _, key := range CollectionKeys {
		if err := a.kv.Remove(ctx, key); err != nil {
			return fmt.Errorf("wipe %s: %w", key, err)
		}
	}
	if err := a.kv.Set(ctx, KeyVersion, version); err != nil {
		return fmt.Errorf("write %s: %w", KeyVersion, err)
	}
	return nil
}

func loadList[T any](ctx context.Context, kv kvstore.KV, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if err == kvstore.ErrNotFound {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func saveList[T any](ctx context.Context, kv kvstore.KV, key string, list []T) error {
	if list == nil {
		list = []T{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
