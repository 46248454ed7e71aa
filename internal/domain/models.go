package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexID is a numeric entity id that tolerates legacy records where the value
// was stored as a JSON string. It always marshals back as a number.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = FlexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n)
	return nil
}

type Brand struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID      int64   `json:"id"`
	BrandID FlexID  `json:"brandId"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
}

type Staff struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
}

type Customer struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

// BillItem is embedded in a bill. ProductID may be a synthetic
// "manual-<timestamp>" id for ad-hoc items not in the catalog.
type BillItem struct {
	ProductID   string  `json:"productId"`
	BrandName   string  `json:"brandName"`
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	ItemTotal   float64 `json:"itemTotal"`
}

const (
	BillStatusActive    = "ACTIVE"
	BillStatusCancelled = "CANCELLED"
)

// Bill is the persisted ledger document. Staff, TransportCharges and
// ExtraCharges are absent on bills written by earlier releases; consumers
// treat absence as zero / not applicable.
type Bill struct {
	ID               int64      `json:"id"`
	BillNumber       int64      `json:"billNumber"`
	Date             time.Time  `json:"date"`
	Customer         Customer   `json:"customer"`
	Staff            *Staff     `json:"staff,omitempty"`
	Items            []BillItem `json:"items"`
	Subtotal         float64    `json:"subtotal"`
	GSTPercentage    float64    `json:"gstPercentage"`
	GSTAmount        float64    `json:"gstAmount"`
	TransportCharges float64    `json:"transportCharges,omitempty"`
	ExtraCharges     float64    `json:"extraCharges,omitempty"`
	TotalAmount      float64    `json:"totalAmount"`
	Status           string     `json:"status"`
	CancellationDate *time.Time `json:"cancellationDate,omitempty"`
}

// DraftBill is what the billing counter submits; everything else on a Bill is
// derived at creation time.
type DraftBill struct {
	Customer         Customer    `json:"customer"`
	StaffID          int64       `json:"staffId,omitempty"`
	Items            []DraftItem `json:"items"`
	GSTPercentage    float64     `json:"gstPercentage"`
	TransportCharges float64     `json:"transportCharges,omitempty"`
	ExtraCharges     float64     `json:"extraCharges,omitempty"`
}

type DraftItem struct {
	ProductID   string  `json:"productId,omitempty"`
	BrandName   string  `json:"brandName"`
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	GSTAmount   float64 `json:"gstAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

type ReportAggregate struct {
	BillCount        int     `json:"billCount"`
	Subtotal         float64 `json:"subtotal"`
	GSTAmount        float64 `json:"gstAmount"`
	TransportCharges float64 `json:"transportCharges"`
	ExtraCharges     float64 `json:"extraCharges"`
	TotalAmount      float64 `json:"totalAmount"`
}

type ReportResponse struct {
	Window       string          `json:"window"`
	Bills        []Bill          `json:"bills"`
	Aggregate    ReportAggregate `json:"aggregate"`
	TodaySummary ReportAggregate `json:"todaySummary"`
}

// BackupDocument is the download/upload snapshot format. Field names and the
// "1.0" version marker match backups produced by earlier releases.
type BackupDocument struct {
	Brands            []Brand   `json:"brands"`
	Products          []Product `json:"products"`
	Bills             []Bill    `json:"bills"`
	Staff             []Staff   `json:"staff"`
	CurrentBillNumber int64     `json:"currentBillNumber"`
	Timestamp         string    `json:"timestamp"`
	Version           string    `json:"version"`
}

type BrandCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ProductCreateRequest struct {
	BrandID int64   `json:"brandId"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
}

type ProductUpdateRequest struct {
	BrandID *int64   `json:"brandId,omitempty"`
	Name    *string  `json:"name,omitempty"`
	Price   *float64 `json:"price,omitempty"`
}

type StaffCreateRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
}

type StaffUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Mobile *string `json:"mobile,omitempty"`
	Role   *string `json:"role,omitempty"`
}

// BillFilter narrows the admin bill-records listing. AmountBand is one of
// "0-1000", "1000-5000", "5000+" or empty.
type BillFilter struct {
	Date       string `json:"date,omitempty"`
	BillNumber int64  `json:"billNumber,omitempty"`
	AmountBand string `json:"amountBand,omitempty"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Role string
}
