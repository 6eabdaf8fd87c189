package schema

// Definition returns the invoice structure as a JSON Schema (draft
// 2020-12 subset) built as a generic map. Every property is listed as
// required at its level: a response that leaves a key out is invalid
// even when the value would have been null. Optional fields accept
// string or null; required fields accept string only.
//
// Both the extraction prompt and the response validator consume this
// map, so it is rebuilt on every call rather than cached.
func Definition() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": requiredString("Description of the item purchased"),
			"quantity":    optionalString("Quantity of items"),
			"unit_price":  optionalString("Price per unit"),
			"total_price": optionalString("Total price for this line item"),
		},
		"required": []string{"description", "quantity", "unit_price", "total_price"},
	}

	vendor := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name_english": optionalString("Vendor name in English"),
			"name_nepali":  optionalString("Vendor name in Nepali"),
			"address":      optionalString("Vendor address"),
			"phone":        optionalString("Vendor phone number"),
			"email":        optionalString("Vendor email address"),
			"vat_number":   optionalString("Vendor VAT/PAN number"),
		},
		"required": []string{"name_english", "name_nepali", "address", "phone", "email", "vat_number"},
	}

	customer := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       optionalString("Customer name"),
			"address":    optionalString("Customer address"),
			"vat_number": optionalString("Customer VAT/PAN number"),
		},
		"required": []string{"name", "address", "vat_number"},
	}

	summary := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subtotal":          optionalString("Subtotal before tax and discount"),
			"tax_amount":        optionalString("Tax amount"),
			"tax_rate_percent":  optionalString("Tax rate in percent"),
			"discount_amount":   optionalString("Discount amount"),
			"total_amount_due":  optionalString("Final total amount due"),
			"amount_in_words":   optionalString("Total amount written in words"),
			"has_company_stamp": requiredString("Yes or No"),
		},
		"required": []string{
			"subtotal", "tax_amount", "tax_rate_percent", "discount_amount",
			"total_amount_due", "amount_in_words", "has_company_stamp",
		},
	}

	return map[string]any{
		"title": "InvoiceData",
		"type":  "object",
		"properties": map[string]any{
			"invoice_number":     optionalString("Invoice number"),
			"transaction_number": optionalString("Transaction number"),
			"reference_number":   optionalString("Reference number"),
			"invoice_date_ad":    optionalString("Invoice date (Gregorian), YYYY-MM-DD"),
			"invoice_miti_bs":    optionalString("Invoice miti (Bikram Sambat), YYYY-MM-DD"),
			"vendor_info":        vendor,
			"customer_info":      customer,
			"line_items": map[string]any{
				"type":  "array",
				"items": item,
			},
			"summary": summary,
		},
		"required": []string{
			"invoice_number", "transaction_number", "reference_number",
			"invoice_date_ad", "invoice_miti_bs",
			"vendor_info", "customer_info", "line_items", "summary",
		},
	}
}

func requiredString(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func optionalString(description string) map[string]any {
	return map[string]any{"type": []string{"string", "null"}, "description": description}
}
