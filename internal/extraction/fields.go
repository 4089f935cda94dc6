package extraction

import (
	"fmt"
	"strings"
)

// Fields are raw field values read by something other than the XML
// strategies, such as a vision model reading a scanned document.
type Fields struct {
	InvoiceID   string `json:"invoice_id"`
	NetWeight   string `json:"net_weight"`
	InvoiceDate string `json:"invoice_date"`
	Plate       string `json:"plate"`
}

// FromFields applies the same normalization and missing-field rules as
// Extract to raw values obtained by source.
func (e Extractor) FromFields(f Fields, source, filename string) Result {
	var (
		result  Result
		missing []string
	)

	if id := strings.TrimSpace(f.InvoiceID); id != "" {
		result.InvoiceID = strPtr(id)
	} else {
		missing = append(missing, fmt.Sprintf("missing invoiceId (tried %s)", source))
	}

	weightNotNumber := false
	if raw := strings.TrimSpace(f.NetWeight); raw != "" {
		if weight, ok := ParseWeight(raw); ok {
			result.NetWeight = &weight
		} else {
			weightNotNumber = true
		}
	} else {
		missing = append(missing, fmt.Sprintf("missing netWeight (tried %s)", source))
	}

	if raw := strings.TrimSpace(f.InvoiceDate); raw != "" {
		result.InvoiceDate = strPtr(e.formatDate(raw))
	}
	if plate, ok := MatchPlate(strings.ToUpper(f.Plate)); ok {
		result.ExtractedPlate = strPtr(plate)
	}
	result.FilenameDate = FilenameDate(filename)

	result.setError(missing, weightNotNumber)
	return result
}

func (r *Result) setError(missing []string, weightNotNumber bool) {
	switch {
	case len(missing) > 0:
		if weightNotNumber {
			missing = append(missing, "net weight not numeric")
		}
		r.Error = strings.Join(missing, "; ")
		r.Kind = FieldMissing
	case weightNotNumber:
		r.Error = "net weight not numeric"
		r.Kind = WeightNotNumeric
	}
}
