package mapper

import (
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
)

const timestampFormat = "2006-01-02T15:04:05Z"
const dateFormat = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateFormat)
	return &s
}

// ToCustomerDTO converts Customer to CustomerDTO
func ToCustomerDTO(customer *domain.Customer) domain.CustomerDTO {
	return domain.CustomerDTO{
		ID:             customer.ID,
		Name:           customer.Name,
		Email:          customer.Email,
		Phone:          customer.Phone,
		Address:        customer.Address,
		City:           customer.City,
		PostalCode:     customer.PostalCode,
		Type:           customer.Type,
		OrgNumber:      customer.OrgNumber,
		PersonalNumber: customer.PersonalNumber,
		CreatedAt:      formatTime(customer.CreatedAt),
		UpdatedAt:      formatTime(customer.UpdatedAt),
	}
}

// ToBookingDTO converts Booking to BookingDTO
func ToBookingDTO(booking *domain.Booking) domain.BookingDTO {
	dto := domain.BookingDTO{
		ID:            booking.ID,
		CustomerID:    booking.CustomerID,
		ServiceType:   booking.ServiceType,
		Description:   booking.Description,
		PreferredDate: formatDatePtr(booking.PreferredDate),
		Status:        booking.Status,
		CreatedAt:     formatTime(booking.CreatedAt),
		UpdatedAt:     formatTime(booking.UpdatedAt),
	}
	if booking.Customer != nil {
		dto.CustomerName = booking.Customer.Name
	}
	return dto
}

// ToJobDTO converts Job to JobDTO
func ToJobDTO(job *domain.Job) domain.JobDTO {
	dto := domain.JobDTO{
		ID:           job.ID,
		BookingID:    job.BookingID,
		CustomerID:   job.CustomerID,
		Title:        job.Title,
		LaborHours:   job.LaborHours,
		HourlyRate:   job.HourlyRate,
		FixedPrice:   job.FixedPrice,
		MaterialCost: job.MaterialCost,
		ExpenseCost:  job.ExpenseCost,
		RotEligible:  job.RotEligible,
		RutEligible:  job.RutEligible,
		Status:       job.Status,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.Customer != nil {
		dto.CustomerName = job.Customer.Name
	}
	return dto
}

// ToQuoteItemDTO converts QuoteItem to LineItemDTO
func ToQuoteItemDTO(item *domain.QuoteItem) domain.LineItemDTO {
	return domain.LineItemDTO{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Quantity * item.UnitPrice,
		Kind:        item.Kind,
		RotEligible: item.RotEligible,
		RutEligible: item.RutEligible,
		Supplier:    item.Supplier,
		SortOrder:   item.SortOrder,
	}
}

// ToInvoiceItemDTO converts InvoiceItem to LineItemDTO
func ToInvoiceItemDTO(item *domain.InvoiceItem) domain.LineItemDTO {
	return domain.LineItemDTO{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Quantity * item.UnitPrice,
		Kind:        item.Kind,
		RotEligible: item.RotEligible,
		RutEligible: item.RutEligible,
		Supplier:    item.Supplier,
		SortOrder:   item.SortOrder,
	}
}

// ToQuoteDTO converts Quote to QuoteDTO
func ToQuoteDTO(quote *domain.Quote) domain.QuoteDTO {
	items := make([]domain.LineItemDTO, len(quote.Items))
	for i := range quote.Items {
		items[i] = ToQuoteItemDTO(&quote.Items[i])
	}

	dto := domain.QuoteDTO{
		ID:            quote.ID,
		QuoteNumber:   quote.QuoteNumber,
		BookingID:     quote.BookingID,
		CustomerID:    quote.CustomerID,
		Title:         quote.Title,
		Status:        quote.Status,
		DiscountType:  quote.DiscountType,
		DiscountValue: quote.DiscountValue,
		VatEnabled:    quote.VatEnabled,
		ValidUntil:    formatTimePtr(quote.ValidUntil),
		SentAt:        formatTimePtr(quote.SentAt),
		DecidedAt:     formatTimePtr(quote.DecidedAt),
		Totals:        quote.Totals,
		PdfURL:        quote.PdfURL,
		Notes:         quote.Notes,
		Items:         items,
		CreatedAt:     formatTime(quote.CreatedAt),
		UpdatedAt:     formatTime(quote.UpdatedAt),
	}
	if quote.Customer != nil {
		dto.CustomerName = quote.Customer.Name
	}
	return dto
}

// ToInvoiceDTO converts Invoice to InvoiceDTO
func ToInvoiceDTO(invoice *domain.Invoice) domain.InvoiceDTO {
	items := make([]domain.LineItemDTO, len(invoice.Items))
	for i := range invoice.Items {
		items[i] = ToInvoiceItemDTO(&invoice.Items[i])
	}

	dto := domain.InvoiceDTO{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		QuoteID:       invoice.QuoteID,
		JobID:         invoice.JobID,
		BookingID:     invoice.BookingID,
		CustomerID:    invoice.CustomerID,
		Status:        invoice.Status,
		DiscountType:  invoice.DiscountType,
		DiscountValue: invoice.DiscountValue,
		VatEnabled:    invoice.VatEnabled,
		IssueDate:     formatDatePtr(invoice.IssueDate),
		DueDate:       formatDatePtr(invoice.DueDate),
		PaidAt:        formatTimePtr(invoice.PaidAt),
		Totals:        invoice.Totals,
		PdfURL:        invoice.PdfURL,
		Items:         items,
		CreatedAt:     formatTime(invoice.CreatedAt),
		UpdatedAt:     formatTime(invoice.UpdatedAt),
	}
	if invoice.Customer != nil {
		dto.CustomerName = invoice.Customer.Name
	}
	return dto
}

// ToPublicQuoteView converts a Quote to the redacted share-link view.
// Internal identifiers and notes never leave through this path.
func ToPublicQuoteView(quote *domain.Quote) domain.PublicQuoteView {
	items := make([]domain.PublicLineItem, len(quote.Items))
	for i, item := range quote.Items {
		items[i] = domain.PublicLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Quantity * item.UnitPrice,
			Kind:        item.Kind,
			RotEligible: item.RotEligible,
			RutEligible: item.RutEligible,
		}
	}

	view := domain.PublicQuoteView{
		QuoteNumber: quote.QuoteNumber,
		Title:       quote.Title,
		Status:      quote.Status,
		ValidUntil:  formatTimePtr(quote.ValidUntil),
		Items:       items,
		Totals:      quote.Totals,
		PdfURL:      quote.PdfURL,
	}
	if quote.Customer != nil {
		view.CustomerName = quote.Customer.Name
	}
	return view
}

// ToPublicInvoiceView converts an Invoice to the redacted share-link view
func ToPublicInvoiceView(invoice *domain.Invoice) domain.PublicInvoiceView {
	items := make([]domain.PublicLineItem, len(invoice.Items))
	for i, item := range invoice.Items {
		items[i] = domain.PublicLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Quantity * item.UnitPrice,
			Kind:        item.Kind,
			RotEligible: item.RotEligible,
			RutEligible: item.RutEligible,
		}
	}

	view := domain.PublicInvoiceView{
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status,
		IssueDate:     formatDatePtr(invoice.IssueDate),
		DueDate:       formatDatePtr(invoice.DueDate),
		Items:         items,
		Totals:        invoice.Totals,
		PdfURL:        invoice.PdfURL,
	}
	if invoice.Customer != nil {
		view.CustomerName = invoice.Customer.Name
	}
	return view
}

// ToChangeRequestDTO converts ChangeRequest to ChangeRequestDTO
func ToChangeRequestDTO(cr *domain.ChangeRequest) domain.ChangeRequestDTO {
	return domain.ChangeRequestDTO{
		ID:          cr.ID,
		QuoteID:     cr.QuoteID,
		Message:     cr.Message,
		Attachments: cr.Attachments,
		CreatedAt:   formatTime(cr.CreatedAt),
	}
}

// ToActivityDTO converts Activity to ActivityDTO
func ToActivityDTO(activity *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:          activity.ID,
		TargetType:  activity.TargetType,
		TargetID:    activity.TargetID,
		Title:       activity.Title,
		Body:        activity.Body,
		OccurredAt:  formatTime(activity.OccurredAt),
		CreatorID:   activity.CreatorID,
		CreatorName: activity.CreatorName,
		CreatedAt:   formatTime(activity.CreatedAt),
	}
}
