package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tradebill/internal/backup"
	"tradebill/internal/domain"
	"tradebill/internal/ledger"
	"tradebill/internal/report"
	"tradebill/internal/sequence"
	"tradebill/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("admin login required")
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the facade the HTTP layer calls into. Catalog and staff
// management, the bill lifecycle, reporting and the data-management flow all
// pass through here.
type Service struct {
	storage      *storage.Adapter
	ledger       *ledger.Ledger
	seq          *sequence.Sequencer
	backup       *backup.Coordinator
	businessName string
	now          func() time.Time
}

func New(st *storage.Adapter, lg *ledger.Ledger, seq *sequence.Sequencer, coordinator *backup.Coordinator, businessName string, now func() time.Time) *Service {
	if businessName == "" {
		businessName = "tradebill"
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		storage:      st,
		ledger:       lg,
		seq:          seq,
		backup:       coordinator,
		businessName: businessName,
		now:          now,
	}
}

// ProductListing is a product joined with its brand name for display. A
// dangling brand reference renders as "Unknown" rather than failing.
type ProductListing struct {
	domain.Product
	BrandName string `json:"brandName"`
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.storage.Brands(ctx)
}

func (s *Service) AddBrand(ctx context.Context, req domain.BrandCreateRequest) (domain.Brand, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Brand{}, fmt.Errorf("%w: brand name is required", ErrInvalidInput)
	}

	brands, err := s.storage.Brands(ctx)
	if err != nil {
		return domain.Brand{}, err
	}

	brand := domain.Brand{
		ID:          s.uniqueID(brandIDs(brands)),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	brands = append(brands, brand)
	if err := s.storage.SaveBrands(ctx, brands); err != nil {
		return domain.Brand{}, err
	}
	return brand, nil
}

// DeleteBrand removes the brand only. Products referencing it are left in
// place and show up with an "Unknown" brand.
func (s *Service) DeleteBrand(ctx context.Context, brandID int64) error {
	brands, err := s.storage.Brands(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.Brand, 0, len(brands))
	found := false
	for _, brand := range brands {
		if brand.ID == brandID {
			found = true
			continue
		}
		kept = append(kept, brand)
	}
	if !found {
		return fmt.Errorf("%w: brand %d", ErrNotFound, brandID)
	}
	return s.storage.SaveBrands(ctx, kept)
}

func (s *Service) ListProducts(ctx context.Context, brandID int64) ([]ProductListing, error) {
	products, err := s.storage.Products(ctx)
	if err != nil {
		return nil, err
	}
	brands, err := s.storage.Brands(ctx)
	if err != nil {
		return nil, err
	}

	brandNames := make(map[int64]string, len(brands))
	for _, brand := range brands {
		brandNames[brand.ID] = brand.Name
	}

	listings := make([]ProductListing, 0, len(products))
	for _, product := range products {
		if brandID != 0 && int64(product.BrandID) != brandID {
			continue
		}
		name, ok := brandNames[int64(product.BrandID)]
		if !ok {
			name = "Unknown"
		}
		listings = append(listings, ProductListing{Product: product, BrandName: name})
	}
	return listings, nil
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if req.BrandID <= 0 || name == "" || req.Price <= 0 {
		return domain.Product{}, fmt.Errorf("%w: product needs a brand, a name and a positive price", ErrInvalidInput)
	}

	products, err := s.storage.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		ID:      s.uniqueID(productIDs(products)),
		BrandID: domain.FlexID(req.BrandID),
		Name:    name,
		Price:   req.Price,
	}
	products = append(products, product)
	if err := s.storage.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	products, err := s.storage.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	idx := -1
	for i := range products {
		if products[i].ID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Product{}, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}

	updated := products[idx]
	if req.BrandID != nil {
		if *req.BrandID <= 0 {
			return domain.Product{}, fmt.Errorf("%w: brand id must be positive", ErrInvalidInput)
		}
		updated.BrandID = domain.FlexID(*req.BrandID)
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: product name is required", ErrInvalidInput)
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return domain.Product{}, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		updated.Price = *req.Price
	}

	products[idx] = updated
	if err := s.storage.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	products, err := s.storage.Products(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.Product, 0, len(products))
	found := false
	for _, product := range products {
		if product.ID == productID {
			found = true
			continue
		}
		kept = append(kept, product)
	}
	if !found {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	return s.storage.SaveProducts(ctx, kept)
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.storage.Staff(ctx)
}

func (s *Service) AddStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.Staff, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Staff{}, err
	}
	name := strings.TrimSpace(req.Name)
	mobile := strings.TrimSpace(req.Mobile)
	role := strings.TrimSpace(req.Role)
	if name == "" || mobile == "" || role == "" {
		return domain.Staff{}, fmt.Errorf("%w: name, mobile and role are required", ErrInvalidInput)
	}
	if !mobilePattern.MatchString(mobile) {
		return domain.Staff{}, fmt.Errorf("%w: mobile must be a 10-digit number", ErrInvalidInput)
	}

	staff, err := s.storage.Staff(ctx)
	if err != nil {
		return domain.Staff{}, err
	}

	member := domain.Staff{
		ID:     s.uniqueID(staffIDs(staff)),
		Name:   name,
		Mobile: mobile,
		Role:   role,
	}
	staff = append(staff, member)
	if err := s.storage.SaveStaff(ctx, staff); err != nil {
		return domain.Staff{}, err
	}
	return member, nil
}

func (s *Service) UpdateStaff(ctx context.Context, staffID int64, req domain.StaffUpdateRequest) (domain.Staff, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Staff{}, err
	}

	staff, err := s.storage.Staff(ctx)
	if err != nil {
		return domain.Staff{}, err
	}

	idx := -1
	for i := range staff {
		if staff[i].ID == staffID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Staff{}, fmt.Errorf("%w: staff %d", ErrNotFound, staffID)
	}

	updated := staff[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Staff{}, fmt.Errorf("%w: staff name is required", ErrInvalidInput)
		}
		updated.Name = name
	}
	if req.Mobile != nil {
		mobile := strings.TrimSpace(*req.Mobile)
		if !mobilePattern.MatchString(mobile) {
			return domain.Staff{}, fmt.Errorf("%w: mobile must be a 10-digit number", ErrInvalidInput)
		}
		updated.Mobile = mobile
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if role == "" {
			return domain.Staff{}, fmt.Errorf("%w: staff role is required", ErrInvalidInput)
		}
		updated.Role = role
	}

	staff[idx] = updated
	if err := s.storage.SaveStaff(ctx, staff); err != nil {
		return domain.Staff{}, err
	}
	return updated, nil
}

func (s *Service) DeleteStaff(ctx context.Context, staffID int64) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	staff, err := s.storage.Staff(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.Staff, 0, len(staff))
	found := false
	for _, member := range staff {
		if member.ID == staffID {
			found = true
			continue
		}
		kept = append(kept, member)
	}
	if !found {
		return fmt.Errorf("%w: staff %d", ErrNotFound, staffID)
	}
	return s.storage.SaveStaff(ctx, kept)
}

func (s *Service) CreateBill(ctx context.Context, draft domain.DraftBill) (domain.Bill, error) {
	return s.ledger.Create(ctx, draft)
}

func (s *Service) CancelBill(ctx context.Context, billID int64) (domain.Bill, error) {
	return s.ledger.Cancel(ctx, billID)
}

func (s *Service) GetBill(ctx context.Context, billID int64) (domain.Bill, error) {
	return s.ledger.FindByID(ctx, billID)
}

func (s *Service) GetBillByNumber(ctx context.Context, number int64) (domain.Bill, error) {
	return s.ledger.FindByNumber(ctx, number)
}

// ListBills returns the ledger newest first, narrowed by the admin-panel
// filters (calendar date, bill number, amount band).
func (s *Service) ListBills(ctx context.Context, filter domain.BillFilter) ([]domain.Bill, error) {
	bills, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}

	loc := s.now().Location()
	kept := make([]domain.Bill, 0, len(bills))
	for _, bill := range bills {
		if filter.Date != "" && bill.Date.In(loc).Format("2006-01-02") != filter.Date {
			continue
		}
		if filter.BillNumber != 0 && bill.BillNumber != filter.BillNumber {
			continue
		}
		if !amountBandMatches(filter.AmountBand, bill.TotalAmount) {
			continue
		}
		kept = append(kept, bill)
	}
	return kept, nil
}

// QueryReport filters the ledger by the requested window and aggregates it.
// The today-summary block is always computed alongside, whatever the window.
func (s *Service) QueryReport(ctx context.Context, window report.Window, rng report.Range) (domain.ReportResponse, error) {
	bills, err := s.storage.Bills(ctx)
	if err != nil {
		return domain.ReportResponse{}, err
	}

	now := s.now()
	filtered := report.FilterByWindow(bills, window, rng, now)
	today := report.FilterByWindow(bills, report.WindowDaily, report.Range{}, now)

	return domain.ReportResponse{
		Window:       string(window),
		Bills:        filtered,
		Aggregate:    report.Aggregate(filtered),
		TodaySummary: report.Aggregate(today),
	}, nil
}

func (s *Service) PeekBillNumber(ctx context.Context) (int64, error) {
	return s.seq.Peek(ctx)
}

// ResetBillNumber force-sets the sequence to 1. Existing bills keep their
// numbers, so future bills may collide with historical ones.
func (s *Service) ResetBillNumber(ctx context.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	return s.seq.Reset(ctx)
}

func (s *Service) SnapshotBackup(ctx context.Context) (domain.BackupDocument, string, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.BackupDocument{}, "", err
	}
	doc, err := s.backup.Snapshot(ctx)
	if err != nil {
		return domain.BackupDocument{}, "", err
	}
	return doc, s.backup.FileName(s.businessName), nil
}

func (s *Service) RestoreBackup(ctx context.Context, doc domain.BackupDocument) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	return s.backup.Restore(ctx, doc)
}

func (s *Service) ClearAllData(ctx context.Context) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	return s.backup.ClearAll(ctx)
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

// uniqueID assigns millisecond-timestamp ids, bumping past collisions so two
// records created in the same millisecond stay distinct.
func (s *Service) uniqueID(taken map[int64]struct{}) int64 {
	candidate := s.now().UnixMilli()
	for {
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
		candidate++
	}
}

func brandIDs(brands []domain.Brand) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(brands))
	for _, brand := range brands {
		ids[brand.ID] = struct{}{}
	}
	return ids
}

func productIDs(products []domain.Product) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(products))
	for _, product := range products {
		ids[product.ID] = struct{}{}
	}
	return ids
}

func staffIDs(staff []domain.Staff) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(staff))
	for _, member := range staff {
		ids[member.ID] = struct{}{}
	}
	return ids
}

func amountBandMatches(band string, amount float64) bool {
	switch band {
	case "0-1000":
		return amount <= 1000
	case "1000-5000":
		return amount > 1000 && amount <= 5000
	case "5000+":
		return amount > 5000
	default:
		return true
	}
}
