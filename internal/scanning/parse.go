package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/weighbridge/internal/extraction"
)

// scannedFields mirrors the JSON the models are asked to return. Weight may
// come back as a number or a string.
type scannedFields struct {
	InvoiceID   json.RawMessage `json:"invoice_id"`
	NetWeight   json.RawMessage `json:"net_weight"`
	InvoiceDate string          `json:"invoice_date"`
	Plate       string          `json:"plate"`
}

// parseFieldsJSON parses a model response into raw extraction fields
func parseFieldsJSON(text string) (*extraction.Fields, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var raw scannedFields
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &extraction.Fields{
		InvoiceID:   scalar(raw.InvoiceID),
		NetWeight:   scalar(raw.NetWeight),
		InvoiceDate: strings.TrimSpace(raw.InvoiceDate),
		Plate:       strings.TrimSpace(raw.Plate),
	}, nil
}

// scalar renders a JSON string or number as text; null and anything else is empty
func scalar(msg json.RawMessage) string {
	if len(msg) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String()
	}
	return ""
}
