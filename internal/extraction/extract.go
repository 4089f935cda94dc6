package extraction

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/weighbridge/internal/document"
)

// Output layout of InvoiceDate
const DateLayout = "2006-01-02 15:04"

var invoiceIDStrategies = []Strategy{
	Candidates{Tags: []string{"cCT", "nCT", "InvoiceID", "NF", "CT", "nNF", "id", "number"}},
}

var netWeightStrategies = []Strategy{
	Candidates{Label: "infQ[tpMed=PESO REAL]/qCarga", Tags: []string{"infQ"}, Match: pesoReal},
	Candidates{Tags: []string{"PesoReal", "pesoReal", "PESO_REAL", "NetWeight", "Weight", "pesoL", "Net", "qCarga"}},
}

var invoiceDateStrategies = []Strategy{
	StrictPath{"cteProc", "CTe", "infCte", "ide", "dhEmi"},
	StrictPath{"CTe", "infCte", "ide", "dhEmi"},
	Candidates{Tags: []string{"dhEmi", "dEmi", "IssueDate", "Date"}},
}

// pesoReal selects the qCarga of an infQ whose tpMed is PESO REAL
func pesoReal(infQ *document.Node) (string, bool) {
	tpMed := infQ.Child("tpMed")
	if tpMed == nil || strings.ToUpper(strings.TrimSpace(tpMed.Content())) != "PESO REAL" {
		return "", false
	}
	qCarga := infQ.Child("qCarga")
	if qCarga == nil {
		return "", false
	}
	return strings.TrimSpace(qCarga.Content()), true
}

// Extractor pulls ticket fields out of fiscal XML documents. Dates are
// reformatted in Location; a nil Location means time.Local.
type Extractor struct {
	Location *time.Location
}

// Extract runs the extractor with time.Local
func Extract(data []byte, filename string) Result {
	return Extractor{}.Extract(data, filename)
}

// ExtractFrom reads the whole document from r before extracting. A read
// failure is reported the same way as a malformed document.
func (e Extractor) ExtractFrom(r io.Reader, filename string) Result {
	data, err := io.ReadAll(r)
	if err != nil {
		slog.Warn("Failed to read document", "filename", filename, "error", err)
		return malformed()
	}
	return e.Extract(data, filename)
}

// Extract never fails; problems are reported on the returned Result.
func (e Extractor) Extract(data []byte, filename string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while extracting document", "filename", filename, "panic", r)
			result = malformed()
		}
	}()

	doc, err := document.LoadBytes(data)
	if err != nil {
		return malformed()
	}

	var (
		missing         []string
		weightNotNumber bool
	)

	if raw, ok := firstOf(doc, invoiceIDStrategies); ok && raw != "" {
		result.InvoiceID = strPtr(raw)
	} else {
		missing = append(missing, fmt.Sprintf("missing invoiceId (tried %s)", describe(invoiceIDStrategies)))
	}

	if raw, ok := firstOf(doc, netWeightStrategies); ok {
		if weight, ok := ParseWeight(raw); ok {
			result.NetWeight = &weight
		} else {
			weightNotNumber = true
		}
	} else {
		missing = append(missing, fmt.Sprintf("missing netWeight (tried %s)", describe(netWeightStrategies)))
	}

	if raw, ok := firstOf(doc, invoiceDateStrategies); ok && raw != "" {
		result.InvoiceDate = strPtr(e.formatDate(raw))
	}

	result.ExtractedPlate = findPlate(doc)
	result.FilenameDate = FilenameDate(filename)

	result.setError(missing, weightNotNumber)
	return result
}

func (e Extractor) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// formatDate reformats a parsable date, otherwise passes the raw value through
func (e Extractor) formatDate(raw string) string {
	t, ok := ParseDateTime(raw, e.location())
	if !ok {
		return raw
	}
	return t.In(e.location()).Format(DateLayout)
}

// Layouts without an offset are interpreted in the caller's location
var localLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses the date forms found on fiscal documents as well as
// DateLayout itself.
func ParseDateTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MaxNetWeight is the largest cargo weight, in kilograms, accepted from a
// document. It keeps computed gross weights well inside int range.
const MaxNetWeight = 1_000_000.0

// ValidWeight reports whether w is a usable net weight
func ValidWeight(w float64) bool {
	return w > 0 && w <= MaxNetWeight
}

// ParseWeight parses a weight in kilograms. A decimal comma is accepted
// when the value has no dot. Values outside (0, MaxNetWeight] are rejected.
func ParseWeight(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || !ValidWeight(f) {
		return 0, false
	}
	return f, true
}
