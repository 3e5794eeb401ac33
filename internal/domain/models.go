package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate generates the ID application-side when the database
// does not supply one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// CustomerType segments customers for billing and analytics purposes.
// BRF (bostadsrättsförening) is a Swedish housing cooperative and is
// billed like a company but reported as its own segment.
type CustomerType string

const (
	CustomerTypeCompany CustomerType = "company"
	CustomerTypePrivate CustomerType = "private"
	CustomerTypeBRF     CustomerType = "brf"
)

// IsValid checks if the CustomerType is a valid enum value
func (ct CustomerType) IsValid() bool {
	switch ct {
	case CustomerTypeCompany, CustomerTypePrivate, CustomerTypeBRF:
		return true
	}
	return false
}

// Customer represents a marketplace customer (the party billed)
type Customer struct {
	BaseModel
	Name           string       `gorm:"type:varchar(200);not null;index"`
	Email          string       `gorm:"type:varchar(255);not null"`
	Phone          string       `gorm:"type:varchar(50)"`
	Address        string       `gorm:"type:varchar(500)"`
	City           string       `gorm:"type:varchar(100)"`
	PostalCode     string       `gorm:"type:varchar(20)"`
	Type           CustomerType `gorm:"type:varchar(20);not null;default:'private';index"`
	OrgNumber      string       `gorm:"type:varchar(20);column:org_number"`
	PersonalNumber string       `gorm:"type:varchar(20);column:personal_number"`
	Quotes         []Quote      `gorm:"foreignKey:CustomerID"`
	Invoices       []Invoice    `gorm:"foreignKey:CustomerID"`
}

// BookingStatus represents the status of a booking request
type BookingStatus string

const (
	BookingStatusNew       BookingStatus = "new"
	BookingStatusQuoted    BookingStatus = "quoted"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a customer service request from the marketplace
type Booking struct {
	BaseModel
	CustomerID    uuid.UUID     `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer      *Customer     `gorm:"foreignKey:CustomerID"`
	ServiceType   string        `gorm:"type:varchar(100);not null;column:service_type"`
	Description   string        `gorm:"type:text"`
	PreferredDate *time.Time    `gorm:"type:date;column:preferred_date"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'new';index"`
}

// JobStatus represents the execution status of a job
type JobStatus string

const (
	JobStatusPlanned    JobStatus = "planned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusInvoiced   JobStatus = "invoiced"
)

// Job represents executed (or planned) work that can be invoiced directly.
// Either hourly (LaborHours x HourlyRate) or a fixed price, plus material
// and expense costs.
type Job struct {
	BaseModel
	BookingID    *uuid.UUID `gorm:"type:uuid;index;column:booking_id"`
	Booking      *Booking   `gorm:"foreignKey:BookingID"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer     *Customer  `gorm:"foreignKey:CustomerID"`
	Title        string     `gorm:"type:varchar(200);not null"`
	LaborHours   float64    `gorm:"type:decimal(10,2);not null;default:0;column:labor_hours"`
	HourlyRate   float64    `gorm:"type:decimal(15,2);not null;default:0;column:hourly_rate"`
	FixedPrice   *float64   `gorm:"type:decimal(15,2);column:fixed_price"`
	MaterialCost float64    `gorm:"type:decimal(15,2);not null;default:0;column:material_cost"`
	ExpenseCost  float64    `gorm:"type:decimal(15,2);not null;default:0;column:expense_cost"`
	RotEligible  bool       `gorm:"not null;default:false;column:rot_eligible"`
	RutEligible  bool       `gorm:"not null;default:false;column:rut_eligible"`
	Status       JobStatus  `gorm:"type:varchar(20);not null;default:'planned';index"`
}

// LaborAmount returns the labor portion of the job cost
func (j *Job) LaborAmount() float64 {
	if j.FixedPrice != nil {
		return *j.FixedPrice
	}
	return j.LaborHours * j.HourlyRate
}

// LineItemKind classifies a line item for subtotal bucketing and
// ROT/RUT eligibility. Expense is its own bucket, never folded into
// material.
type LineItemKind string

const (
	LineItemKindWork     LineItemKind = "work"
	LineItemKindMaterial LineItemKind = "material"
	LineItemKindExpense  LineItemKind = "expense"
)

// IsValid checks if the LineItemKind is a valid enum value
func (k LineItemKind) IsValid() bool {
	switch k {
	case LineItemKindWork, LineItemKindMaterial, LineItemKindExpense:
		return true
	}
	return false
}

// DiscountType represents how a document-level discount is applied
type DiscountType string

const (
	DiscountTypeNone    DiscountType = "none"
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

// IsValid checks if the DiscountType is a valid enum value
func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountTypeNone, DiscountTypePercent, DiscountTypeFixed:
		return true
	}
	return false
}

// QuoteStatus represents the lifecycle phase of a quote
type QuoteStatus string

const (
	QuoteStatusDraft           QuoteStatus = "draft"
	QuoteStatusSent            QuoteStatus = "sent"
	QuoteStatusViewed          QuoteStatus = "viewed"
	QuoteStatusAccepted        QuoteStatus = "accepted"
	QuoteStatusDeclined        QuoteStatus = "declined"
	QuoteStatusChangeRequested QuoteStatus = "change_requested"
	QuoteStatusExpired         QuoteStatus = "expired"
)

// IsValid checks if the QuoteStatus is a valid enum value
func (qs QuoteStatus) IsValid() bool {
	switch qs {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusViewed, QuoteStatusAccepted,
		QuoteStatusDeclined, QuoteStatusChangeRequested, QuoteStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further customer-facing transition is
// possible. change_requested is not terminal: an admin re-issue moves
// the quote back to draft.
func (qs QuoteStatus) IsTerminal() bool {
	switch qs {
	case QuoteStatusAccepted, QuoteStatusDeclined, QuoteStatusExpired:
		return true
	}
	return false
}

// quoteTransitions defines the legal quote status graph. Transitions are
// one-directional except the documented change_requested -> draft re-issue.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:           {QuoteStatusSent},
	QuoteStatusSent:            {QuoteStatusViewed, QuoteStatusAccepted, QuoteStatusDeclined, QuoteStatusChangeRequested, QuoteStatusExpired},
	QuoteStatusViewed:          {QuoteStatusAccepted, QuoteStatusDeclined, QuoteStatusChangeRequested, QuoteStatusExpired},
	QuoteStatusChangeRequested: {QuoteStatusDraft},
}

// CanTransition reports whether a quote may move from one status to another
func CanTransition(from, to QuoteStatus) bool {
	for _, allowed := range quoteTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Totals is the derived money snapshot for a quote or invoice. It is
// recomputed from line items on every transition out of draft and then
// treated as the legal record; it is never hand-edited.
// All amounts are whole SEK.
type Totals struct {
	SubtotalWork     float64 `gorm:"type:decimal(15,2);not null;default:0;column:subtotal_work" json:"subtotalWork"`
	SubtotalMaterial float64 `gorm:"type:decimal(15,2);not null;default:0;column:subtotal_material" json:"subtotalMaterial"`
	SubtotalExpense  float64 `gorm:"type:decimal(15,2);not null;default:0;column:subtotal_expense" json:"subtotalExpense"`
	DiscountAmount   float64 `gorm:"type:decimal(15,2);not null;default:0;column:discount_amount" json:"discountAmount"`
	VatAmount        float64 `gorm:"type:decimal(15,2);not null;default:0;column:vat_amount" json:"vatAmount"`
	RotDeduction     float64 `gorm:"type:decimal(15,2);not null;default:0;column:rot_deduction" json:"rotDeduction"`
	RutDeduction     float64 `gorm:"type:decimal(15,2);not null;default:0;column:rut_deduction" json:"rutDeduction"`
	TotalDue         float64 `gorm:"type:decimal(15,2);not null;default:0;column:total_due" json:"totalDue"`
}

// Quote represents a commercial offer sent to a customer
type Quote struct {
	BaseModel
	QuoteNumber   string         `gorm:"type:varchar(50);uniqueIndex;column:quote_number"`
	BookingID     *uuid.UUID     `gorm:"type:uuid;index;column:booking_id"`
	Booking       *Booking       `gorm:"foreignKey:BookingID"`
	CustomerID    uuid.UUID      `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer      *Customer      `gorm:"foreignKey:CustomerID"`
	Title         string         `gorm:"type:varchar(200);not null"`
	Status        QuoteStatus    `gorm:"type:varchar(30);not null;default:'draft';index"`
	DiscountType  DiscountType   `gorm:"type:varchar(20);not null;default:'none';column:discount_type"`
	DiscountValue float64        `gorm:"type:decimal(15,2);not null;default:0;column:discount_value"`
	VatEnabled    bool           `gorm:"not null;default:true;column:vat_enabled"`
	ValidUntil    *time.Time     `gorm:"column:valid_until"`
	SentAt        *time.Time     `gorm:"column:sent_at"`
	DecidedAt     *time.Time     `gorm:"column:decided_at"`
	PublicToken   string         `gorm:"type:varchar(64);uniqueIndex;column:public_token"`
	Totals        Totals         `gorm:"embedded"`
	TotalsVersion int            `gorm:"not null;default:0;column:totals_version"`
	PdfURL        string         `gorm:"type:varchar(500);column:pdf_url"`
	PdfVersion    int            `gorm:"not null;default:-1;column:pdf_version"`
	Notes         string         `gorm:"type:text"`
	Items         []QuoteItem    `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	DeletedAt     gorm.DeletedAt `gorm:"index;column:deleted_at"`
}

// IsExpired reports whether the quote has passed its validity date.
// Expiry is always evaluated against the clock, never against a cached
// status, so a quote can be effectively expired before the sweep job
// stamps it.
func (q *Quote) IsExpired(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// QuoteItem is a line item owned by a quote. Items are frozen once the
// quote leaves draft.
type QuoteItem struct {
	BaseModel
	QuoteID     uuid.UUID    `gorm:"type:uuid;not null;index;column:quote_id"`
	Description string       `gorm:"type:varchar(500);not null"`
	Quantity    float64      `gorm:"type:decimal(10,2);not null"`
	UnitPrice   float64      `gorm:"type:decimal(15,2);not null;column:unit_price"`
	Kind        LineItemKind `gorm:"type:varchar(20);not null;default:'work'"`
	RotEligible bool         `gorm:"not null;default:false;column:rot_eligible"`
	RutEligible bool         `gorm:"not null;default:false;column:rut_eligible"`
	Supplier    string       `gorm:"type:varchar(200)"`
	SortOrder   int          `gorm:"not null;default:0;column:sort_order"`
}

// InvoiceStatus represents the lifecycle phase of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// IsValid checks if the InvoiceStatus is a valid enum value
func (is InvoiceStatus) IsValid() bool {
	switch is {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice represents a demand for payment. Invoices are never deleted,
// only status-advanced.
type Invoice struct {
	BaseModel
	InvoiceNumber string        `gorm:"type:varchar(50);uniqueIndex;column:invoice_number"`
	QuoteID       *uuid.UUID    `gorm:"type:uuid;index;column:quote_id"`
	Quote         *Quote        `gorm:"foreignKey:QuoteID"`
	JobID         *uuid.UUID    `gorm:"type:uuid;index;column:job_id"`
	Job           *Job          `gorm:"foreignKey:JobID"`
	BookingID     *uuid.UUID    `gorm:"type:uuid;index;column:booking_id"`
	CustomerID    uuid.UUID     `gorm:"type:uuid;not null;index;column:customer_id"`
	Customer      *Customer     `gorm:"foreignKey:CustomerID"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	DiscountType  DiscountType  `gorm:"type:varchar(20);not null;default:'none';column:discount_type"`
	DiscountValue float64       `gorm:"type:decimal(15,2);not null;default:0;column:discount_value"`
	VatEnabled    bool          `gorm:"not null;default:true;column:vat_enabled"`
	IssueDate     *time.Time    `gorm:"type:date;column:issue_date"`
	DueDate       *time.Time    `gorm:"type:date;column:due_date"`
	PaidAt        *time.Time    `gorm:"column:paid_at"`
	PublicToken   string        `gorm:"type:varchar(64);uniqueIndex;column:public_token"`
	Totals        Totals        `gorm:"embedded"`
	TotalsVersion int           `gorm:"not null;default:0;column:totals_version"`
	PdfURL        string        `gorm:"type:varchar(500);column:pdf_url"`
	PdfVersion    int           `gorm:"not null;default:-1;column:pdf_version"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// IsOverdue reports whether a sent invoice has passed its due date
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusSent && i.DueDate != nil && now.After(*i.DueDate)
}

// InvoiceItem is a line item owned by an invoice. Items are copied from
// the source quote or job at creation and never reference them afterwards.
type InvoiceItem struct {
	BaseModel
	InvoiceID   uuid.UUID    `gorm:"type:uuid;not null;index;column:invoice_id"`
	Description string       `gorm:"type:varchar(500);not null"`
	Quantity    float64      `gorm:"type:decimal(10,2);not null"`
	UnitPrice   float64      `gorm:"type:decimal(15,2);not null;column:unit_price"`
	Kind        LineItemKind `gorm:"type:varchar(20);not null;default:'work'"`
	RotEligible bool         `gorm:"not null;default:false;column:rot_eligible"`
	RutEligible bool         `gorm:"not null;default:false;column:rut_eligible"`
	Supplier    string       `gorm:"type:varchar(200)"`
	SortOrder   int          `gorm:"not null;default:0;column:sort_order"`
}

// ChangeRequest stores a customer's change request on a sent quote,
// submitted through the public share link.
type ChangeRequest struct {
	BaseModel
	QuoteID     uuid.UUID      `gorm:"type:uuid;not null;index;column:quote_id"`
	Quote       *Quote         `gorm:"foreignKey:QuoteID"`
	Message     string         `gorm:"type:text;not null"`
	Attachments pq.StringArray `gorm:"type:text[]"`
}

// TrackingEventKind classifies marketing funnel events
type TrackingEventKind string

const (
	TrackingEventPageView TrackingEventKind = "page_view"
	TrackingEventLead     TrackingEventKind = "lead"
)

// TrackingEvent is a marketing funnel event recorded locally. It is the
// fallback source for the funnel's page_view and lead stages when the
// marketing data warehouse is not configured.
type TrackingEvent struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Kind       TrackingEventKind `gorm:"type:varchar(20);not null;index"`
	Source     string            `gorm:"type:varchar(100)"`
	OccurredAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at"`
}

func (e *TrackingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ActivityTargetType represents the type of entity an activity is associated with
type ActivityTargetType string

const (
	ActivityTargetQuote    ActivityTargetType = "Quote"
	ActivityTargetInvoice  ActivityTargetType = "Invoice"
	ActivityTargetBooking  ActivityTargetType = "Booking"
	ActivityTargetCustomer ActivityTargetType = "Customer"
)

// Activity represents an event log entry for a document
type Activity struct {
	BaseModel
	TargetType  ActivityTargetType `gorm:"type:varchar(50);not null;index;column:target_type"`
	TargetID    uuid.UUID          `gorm:"type:uuid;not null;index;column:target_id"`
	Title       string             `gorm:"type:varchar(200);not null"`
	Body        string             `gorm:"type:varchar(2000)"`
	OccurredAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at"`
	CreatorID   string             `gorm:"type:varchar(100);column:creator_id"`
	CreatorName string             `gorm:"type:varchar(200);column:creator_name"`
}

// DocumentType distinguishes the two numbered document series
type DocumentType string

const (
	DocumentTypeQuote   DocumentType = "quote"
	DocumentTypeInvoice DocumentType = "invoice"
)

// NumberPrefix returns the series prefix used in document numbers.
// Quotes use Q, invoices use F (faktura).
func (dt DocumentType) NumberPrefix() string {
	if dt == DocumentTypeInvoice {
		return "F"
	}
	return "Q"
}

// NumberSequence tracks the last used document number per series and year
type NumberSequence struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	DocType      DocumentType `gorm:"type:varchar(20);not null;uniqueIndex:idx_sequence_doctype_year;column:doc_type"`
	Year         int          `gorm:"not null;uniqueIndex:idx_sequence_doctype_year"`
	LastSequence int          `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (s *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
