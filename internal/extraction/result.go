package extraction

// Kind classifies why an extraction is incomplete
type Kind string

const (
	// DocumentMalformed means the input could not be parsed as XML at all
	DocumentMalformed Kind = "document_malformed"
	// FieldMissing means invoiceId and/or netWeight were not found
	FieldMissing Kind = "field_missing"
	// WeightNotNumeric means the weight text was found but is not a number
	WeightNotNumeric Kind = "weight_not_numeric"
)

// Result holds the fields extracted from one fiscal document.
// Absent values are nil and serialize as JSON null.
type Result struct {
	InvoiceID      *string  `json:"invoice_id"`
	NetWeight      *float64 `json:"net_weight"`
	InvoiceDate    *string  `json:"invoice_date"`   // "2006-01-02 15:04" or the raw value when unparsable
	ExtractedPlate *string  `json:"extracted_plate"`
	FilenameDate   *string  `json:"filename_date"` // "2006-01-02 12:00"
	Error          string   `json:"error,omitempty"`
	Kind           Kind     `json:"error_kind,omitempty"`
}

// Complete reports whether a ticket can be issued from the result
func (r Result) Complete() bool {
	return r.Error == "" && r.InvoiceID != nil && r.NetWeight != nil
}

// WithFilenameDateFallback returns a copy whose InvoiceDate is the filename
// date when the document itself carried no date.
func (r Result) WithFilenameDateFallback() Result {
	if r.InvoiceDate == nil && r.FilenameDate != nil {
		date := *r.FilenameDate
		r.InvoiceDate = &date
	}
	return r
}

func malformed() Result {
	return Result{Error: "invalid XML", Kind: DocumentMalformed}
}

func strPtr(s string) *string {
	return &s
}
