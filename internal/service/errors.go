package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrCustomerNotFound is returned when a customer is not found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrBookingNotFound is returned when a booking is not found
	ErrBookingNotFound = errors.New("booking not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrQuoteNotFound is returned when a quote is not found
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrInvoiceNotFound is returned when an invoice is not found
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrQuoteNotDraft is returned when a draft-only operation targets a
	// quote that has left draft
	ErrQuoteNotDraft = errors.New("quote is not in draft status")

	// ErrInvalidTransition is returned when a status transition is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when a compare-and-swap
	// transition lost to a concurrent request
	ErrConcurrentModification = errors.New("document was modified concurrently")

	// ErrQuoteExpired is returned when acting on a quote past its validity date
	ErrQuoteExpired = errors.New("quote has expired")

	// ErrBookingHasQuote is returned when creating a quote for a booking
	// that already has an active one
	ErrBookingHasQuote = errors.New("booking already has an active quote")

	// ErrQuoteHasInvoice is returned when an invoice already exists for the quote
	ErrQuoteHasInvoice = errors.New("quote already has an invoice")

	// ErrJobHasInvoice is returned when an invoice already exists for the job
	ErrJobHasInvoice = errors.New("job already has an invoice")

	// ErrQuoteNotAccepted is returned when invoicing a quote that was not accepted
	ErrQuoteNotAccepted = errors.New("quote is not accepted")

	// ErrJobNotCompleted is returned when invoicing a job that is not completed
	ErrJobNotCompleted = errors.New("job is not completed")

	// ErrInvoiceNotDraft is returned when sending an invoice that has left draft
	ErrInvoiceNotDraft = errors.New("invoice is not in draft status")

	// ErrInvoiceNotPayable is returned when marking paid an invoice that
	// is neither sent nor overdue
	ErrInvoiceNotPayable = errors.New("invoice is not in a payable status")

	// ErrRenderFailure is returned when the PDF rendering pipeline fails
	ErrRenderFailure = errors.New("document rendering failed")
)
