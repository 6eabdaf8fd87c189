// Package schema is the single source of truth for the structure of
// extracted invoice data. The Go types define the validated record, and
// Definition exposes the same structure as a JSON Schema, so the
// extraction prompt and the response validator can never drift apart.
package schema

// All values are kept as free text exactly as printed on the invoice;
// currency amounts and units are not normalized numerically. Optional
// fields are pointers and marshal as explicit null when absent - a
// validated record always carries every key.

// InvoiceItem is one line item on the invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    *string `json:"quantity"`
	UnitPrice   *string `json:"unit_price"`
	TotalPrice  *string `json:"total_price"`
}

// VendorInfo identifies the party issuing the invoice.
type VendorInfo struct {
	NameEnglish *string `json:"name_english"`
	NameNepali  *string `json:"name_nepali"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	VATNumber   *string `json:"vat_number"`
}

// CustomerInfo identifies the party being billed.
type CustomerInfo struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	VATNumber *string `json:"vat_number"`
}

// Summary holds the invoice totals.
type Summary struct {
	Subtotal        *string `json:"subtotal"`
	TaxAmount       *string `json:"tax_amount"`
	TaxRatePercent  *string `json:"tax_rate_percent"`
	DiscountAmount  *string `json:"discount_amount"`
	TotalAmountDue  *string `json:"total_amount_due"`
	AmountInWords   *string `json:"amount_in_words"`
	HasCompanyStamp string  `json:"has_company_stamp"` // "Yes" or "No"
}

// InvoiceData is the root of the extracted invoice structure.
type InvoiceData struct {
	InvoiceNumber     *string       `json:"invoice_number"`
	TransactionNumber *string       `json:"transaction_number"`
	ReferenceNumber   *string       `json:"reference_number"`
	InvoiceDateAD     *string       `json:"invoice_date_ad"` // Gregorian, YYYY-MM-DD
	InvoiceMitiBS     *string       `json:"invoice_miti_bs"` // Bikram Sambat, YYYY-MM-DD
	VendorInfo        VendorInfo    `json:"vendor_info"`
	CustomerInfo      CustomerInfo  `json:"customer_info"`
	LineItems         []InvoiceItem `json:"line_items"`
	Summary           Summary       `json:"summary"`
}
