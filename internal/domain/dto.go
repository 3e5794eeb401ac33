package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type CustomerDTO struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone,omitempty"`
	Address        string       `json:"address,omitempty"`
	City           string       `json:"city,omitempty"`
	PostalCode     string       `json:"postalCode,omitempty"`
	Type           CustomerType `json:"type"`
	OrgNumber      string       `json:"orgNumber,omitempty"`
	PersonalNumber string       `json:"personalNumber,omitempty"`
	CreatedAt      string       `json:"createdAt"` // ISO 8601
	UpdatedAt      string       `json:"updatedAt"` // ISO 8601
}

type BookingDTO struct {
	ID            uuid.UUID     `json:"id"`
	CustomerID    uuid.UUID     `json:"customerId"`
	CustomerName  string        `json:"customerName,omitempty"`
	ServiceType   string        `json:"serviceType"`
	Description   string        `json:"description,omitempty"`
	PreferredDate *string       `json:"preferredDate,omitempty"` // ISO 8601 date
	Status        BookingStatus `json:"status"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type JobDTO struct {
	ID           uuid.UUID  `json:"id"`
	BookingID    *uuid.UUID `json:"bookingId,omitempty"`
	CustomerID   uuid.UUID  `json:"customerId"`
	CustomerName string     `json:"customerName,omitempty"`
	Title        string     `json:"title"`
	LaborHours   float64    `json:"laborHours"`
	HourlyRate   float64    `json:"hourlyRate"`
	FixedPrice   *float64   `json:"fixedPrice,omitempty"`
	MaterialCost float64    `json:"materialCost"`
	ExpenseCost  float64    `json:"expenseCost"`
	RotEligible  bool       `json:"rotEligible"`
	RutEligible  bool       `json:"rutEligible"`
	Status       JobStatus  `json:"status"`
	CreatedAt    string     `json:"createdAt"`
	UpdatedAt    string     `json:"updatedAt"`
}

type LineItemDTO struct {
	ID          uuid.UUID    `json:"id"`
	Description string       `json:"description"`
	Quantity    float64      `json:"quantity"`
	UnitPrice   float64      `json:"unitPrice"`
	Amount      float64      `json:"amount"`
	Kind        LineItemKind `json:"kind"`
	RotEligible bool         `json:"rotEligible"`
	RutEligible bool         `json:"rutEligible"`
	Supplier    string       `json:"supplier,omitempty"`
	SortOrder   int          `json:"sortOrder"`
}

type QuoteDTO struct {
	ID            uuid.UUID     `json:"id"`
	QuoteNumber   string        `json:"quoteNumber,omitempty"` // Assigned on first send, e.g. "Q-2026-001"
	BookingID     *uuid.UUID    `json:"bookingId,omitempty"`
	CustomerID    uuid.UUID     `json:"customerId"`
	CustomerName  string        `json:"customerName,omitempty"`
	Title         string        `json:"title"`
	Status        QuoteStatus   `json:"status"`
	DiscountType  DiscountType  `json:"discountType"`
	DiscountValue float64       `json:"discountValue"`
	VatEnabled    bool          `json:"vatEnabled"`
	ValidUntil    *string       `json:"validUntil,omitempty"` // ISO 8601
	SentAt        *string       `json:"sentAt,omitempty"`
	DecidedAt     *string       `json:"decidedAt,omitempty"`
	Totals        Totals        `json:"totals"`
	PdfURL        string        `json:"pdfUrl,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Items         []LineItemDTO `json:"items"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type InvoiceDTO struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"` // e.g. "F-2026-001"
	QuoteID       *uuid.UUID    `json:"quoteId,omitempty"`
	JobID         *uuid.UUID    `json:"jobId,omitempty"`
	BookingID     *uuid.UUID    `json:"bookingId,omitempty"`
	CustomerID    uuid.UUID     `json:"customerId"`
	CustomerName  string        `json:"customerName,omitempty"`
	Status        InvoiceStatus `json:"status"`
	DiscountType  DiscountType  `json:"discountType"`
	DiscountValue float64       `json:"discountValue"`
	VatEnabled    bool          `json:"vatEnabled"`
	IssueDate     *string       `json:"issueDate,omitempty"` // ISO 8601 date
	DueDate       *string       `json:"dueDate,omitempty"`
	PaidAt        *string       `json:"paidAt,omitempty"`
	Totals        Totals        `json:"totals"`
	PdfURL        string        `json:"pdfUrl,omitempty"`
	Items         []LineItemDTO `json:"items"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

// PublicLineItem is the redacted line-item view exposed on share links
type PublicLineItem struct {
	Description string       `json:"description"`
	Quantity    float64      `json:"quantity"`
	UnitPrice   float64      `json:"unitPrice"`
	Amount      float64      `json:"amount"`
	Kind        LineItemKind `json:"kind"`
	RotEligible bool         `json:"rotEligible"`
	RutEligible bool         `json:"rutEligible"`
}

// PublicQuoteView is the redacted quote exposed to share-link holders.
// No internal identifiers, only the document number and display fields.
type PublicQuoteView struct {
	QuoteNumber  string           `json:"quoteNumber"`
	Title        string           `json:"title"`
	CustomerName string           `json:"customerName"`
	Status       QuoteStatus      `json:"status"`
	ValidUntil   *string          `json:"validUntil,omitempty"`
	Items        []PublicLineItem `json:"items"`
	Totals       Totals           `json:"totals"`
	PdfURL       string           `json:"pdfUrl,omitempty"`
}

// PublicInvoiceView is the redacted invoice exposed to share-link holders
type PublicInvoiceView struct {
	InvoiceNumber string           `json:"invoiceNumber"`
	CustomerName  string           `json:"customerName"`
	Status        InvoiceStatus    `json:"status"`
	IssueDate     *string          `json:"issueDate,omitempty"`
	DueDate       *string          `json:"dueDate,omitempty"`
	Items         []PublicLineItem `json:"items"`
	Totals        Totals           `json:"totals"`
	PdfURL        string           `json:"pdfUrl,omitempty"`
}

// PublicOutcome classifies the result of a public token action
type PublicOutcome string

const (
	PublicOutcomeOK       PublicOutcome = "ok"
	PublicOutcomeExpired  PublicOutcome = "expired"
	PublicOutcomeDeleted  PublicOutcome = "deleted"
	PublicOutcomeDeclined PublicOutcome = "declined"
	PublicOutcomeInvalid  PublicOutcome = "invalid"
)

// PublicActionResult is the stable response shape for every public
// token action. Failures carry a typed reason, never internal detail.
type PublicActionResult struct {
	OK     bool          `json:"ok"`
	Reason PublicOutcome `json:"reason,omitempty"`
}

type ChangeRequestDTO struct {
	ID          uuid.UUID `json:"id"`
	QuoteID     uuid.UUID `json:"quoteId"`
	Message     string    `json:"message"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}

type ActivityDTO struct {
	ID          uuid.UUID          `json:"id"`
	TargetType  ActivityTargetType `json:"targetType"`
	TargetID    uuid.UUID          `json:"targetId"`
	Title       string             `json:"title"`
	Body        string             `json:"body,omitempty"`
	OccurredAt  string             `json:"occurredAt"`
	CreatorID   string             `json:"creatorId,omitempty"`
	CreatorName string             `json:"creatorName,omitempty"`
	CreatedAt   string             `json:"createdAt"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Request DTOs

type CreateCustomerRequest struct {
	Name           string       `json:"name" validate:"required,max=200"`
	Email          string       `json:"email" validate:"required,email,max=255"`
	Phone          string       `json:"phone,omitempty" validate:"max=50"`
	Address        string       `json:"address,omitempty" validate:"max=500"`
	City           string       `json:"city,omitempty" validate:"max=100"`
	PostalCode     string       `json:"postalCode,omitempty" validate:"max=20"`
	Type           CustomerType `json:"type" validate:"required,oneof=company private brf"`
	OrgNumber      string       `json:"orgNumber,omitempty" validate:"max=20"`
	PersonalNumber string       `json:"personalNumber,omitempty" validate:"max=20"`
}

type UpdateCustomerRequest struct {
	Name           string       `json:"name" validate:"required,max=200"`
	Email          string       `json:"email" validate:"required,email,max=255"`
	Phone          string       `json:"phone,omitempty" validate:"max=50"`
	Address        string       `json:"address,omitempty" validate:"max=500"`
	City           string       `json:"city,omitempty" validate:"max=100"`
	PostalCode     string       `json:"postalCode,omitempty" validate:"max=20"`
	Type           CustomerType `json:"type" validate:"required,oneof=company private brf"`
	OrgNumber      string       `json:"orgNumber,omitempty" validate:"max=20"`
	PersonalNumber string       `json:"personalNumber,omitempty" validate:"max=20"`
}

type CreateBookingRequest struct {
	CustomerID    uuid.UUID  `json:"customerId" validate:"required"`
	ServiceType   string     `json:"serviceType" validate:"required,max=100"`
	Description   string     `json:"description,omitempty"`
	PreferredDate *time.Time `json:"preferredDate,omitempty"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required,oneof=new quoted confirmed completed cancelled"`
}

type CreateJobRequest struct {
	BookingID    *uuid.UUID `json:"bookingId,omitempty"`
	CustomerID   uuid.UUID  `json:"customerId" validate:"required"`
	Title        string     `json:"title" validate:"required,max=200"`
	LaborHours   float64    `json:"laborHours" validate:"gte=0"`
	HourlyRate   float64    `json:"hourlyRate" validate:"gte=0"`
	FixedPrice   *float64   `json:"fixedPrice,omitempty" validate:"omitempty,gte=0"`
	MaterialCost float64    `json:"materialCost" validate:"gte=0"`
	ExpenseCost  float64    `json:"expenseCost" validate:"gte=0"`
	RotEligible  bool       `json:"rotEligible,omitempty"`
	RutEligible  bool       `json:"rutEligible,omitempty"`
}

type UpdateJobStatusRequest struct {
	Status JobStatus `json:"status" validate:"required,oneof=planned in_progress completed"`
}

type LineItemRequest struct {
	Description string       `json:"description" validate:"required,max=500"`
	Quantity    float64      `json:"quantity" validate:"gte=0"`
	UnitPrice   float64      `json:"unitPrice" validate:"gte=0"`
	Kind        LineItemKind `json:"kind" validate:"required,oneof=work material expense"`
	RotEligible bool         `json:"rotEligible,omitempty"`
	RutEligible bool         `json:"rutEligible,omitempty"`
	Supplier    string       `json:"supplier,omitempty" validate:"max=200"`
	SortOrder   int          `json:"sortOrder,omitempty" validate:"gte=0"`
}

type CreateQuoteRequest struct {
	BookingID     *uuid.UUID        `json:"bookingId,omitempty"`
	CustomerID    uuid.UUID         `json:"customerId" validate:"required"`
	Title         string            `json:"title" validate:"required,max=200"`
	DiscountType  DiscountType      `json:"discountType,omitempty" validate:"omitempty,oneof=none percent fixed"`
	DiscountValue float64           `json:"discountValue,omitempty" validate:"gte=0"`
	VatEnabled    *bool             `json:"vatEnabled,omitempty"` // Default true
	ValidUntil    *time.Time        `json:"validUntil,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Items         []LineItemRequest `json:"items,omitempty" validate:"dive"`
}

type UpdateQuoteRequest struct {
	Title         string            `json:"title" validate:"required,max=200"`
	DiscountType  DiscountType      `json:"discountType" validate:"required,oneof=none percent fixed"`
	DiscountValue float64           `json:"discountValue" validate:"gte=0"`
	VatEnabled    bool              `json:"vatEnabled"`
	ValidUntil    *time.Time        `json:"validUntil,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Items         []LineItemRequest `json:"items" validate:"dive"`
}

// SendQuoteRequest carries optional overrides applied when sending
type SendQuoteRequest struct {
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

// RequestChangeRequest carries the customer's change request message
type RequestChangeRequest struct {
	Message     string   `json:"message" validate:"required,max=2000"`
	Attachments []string `json:"attachments,omitempty" validate:"max=10,dive,url"`
}

type CreateInvoiceFromQuoteRequest struct {
	DueDays int `json:"dueDays,omitempty" validate:"gte=0,lte=365"` // Default 30
}

type CreateInvoiceFromJobRequest struct {
	DueDays       int          `json:"dueDays,omitempty" validate:"gte=0,lte=365"`
	DiscountType  DiscountType `json:"discountType,omitempty" validate:"omitempty,oneof=none percent fixed"`
	DiscountValue float64      `json:"discountValue,omitempty" validate:"gte=0"`
	VatEnabled    *bool        `json:"vatEnabled,omitempty"`
}

// Analytics DTOs

// AnalyticsWindow bounds every aggregation query. Never persisted.
type AnalyticsWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Previous returns the immediately preceding window of equal length
func (w AnalyticsWindow) Previous() AnalyticsWindow {
	length := w.To.Sub(w.From)
	return AnalyticsWindow{From: w.From.Add(-length), To: w.From}
}

type SegmentRevenueDTO struct {
	Segment       CustomerType `json:"segment"`
	InvoiceCount  int64        `json:"invoiceCount"`
	TotalRevenue  float64      `json:"totalRevenue"`
	AverageOrder  float64      `json:"averageOrder"`
	NewCustomers  int64        `json:"newCustomers"`
	ReturningCust int64        `json:"returningCustomers"`
}

type RevenueReportDTO struct {
	Window          AnalyticsWindow     `json:"window"`
	TotalRevenue    float64             `json:"totalRevenue"`
	PreviousRevenue float64             `json:"previousRevenue"`
	TrendPercent    float64             `json:"trendPercent"`
	InvoiceCount    int64               `json:"invoiceCount"`
	Segments        []SegmentRevenueDTO `json:"segments"`
}

type QuoteStatsDTO struct {
	Window         AnalyticsWindow       `json:"window"`
	TotalQuotes    int64                 `json:"totalQuotes"`
	ByStatus       map[QuoteStatus]int64 `json:"byStatus"`
	ConversionRate float64               `json:"conversionRate"`
}

type FunnelStageDTO struct {
	Stage       string  `json:"stage"`
	Count       int64   `json:"count"`
	DropoffRate float64 `json:"dropoffRate"`
}

type FunnelReportDTO struct {
	Window AnalyticsWindow  `json:"window"`
	Stages []FunnelStageDTO `json:"stages"`
}

type PipelineReportDTO struct {
	PendingCount           int64   `json:"pendingCount"`
	PendingValue           float64 `json:"pendingValue"`
	AcceptedOpenCount      int64   `json:"acceptedOpenCount"`
	AcceptedOpenValue      float64 `json:"acceptedOpenValue"`
	AcceptedInvoicedCount  int64   `json:"acceptedInvoicedCount"`
	AcceptedInvoicedValue  float64 `json:"acceptedInvoicedValue"`
	DeclinedCount          int64   `json:"declinedCount"`
	DeclinedValue          float64 `json:"declinedValue"`
	PipelineTotal          float64 `json:"pipelineTotal"`
}
