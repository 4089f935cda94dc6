package extraction

import (
	"regexp"
	"strings"

	"github.com/zombor/weighbridge/internal/document"
)

// Three letters, a digit, a letter or digit, two digits. Covers both the
// legacy (ABC1234) and Mercosul (ABC1D23) schemes. The plate must not run
// into further letters or digits; anything may precede it, since labels
// are often glued on (PLACAABC1D23).
var platePattern = regexp.MustCompile(`([A-Z]{3}[0-9][A-Z0-9][0-9]{2})(?:$|[^A-Z0-9])`)

// MatchPlate returns the first license plate found in text
func MatchPlate(text string) (string, bool) {
	m := platePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// findPlate scans ObsCont entries whose xCampo mentions PLACA
func findPlate(doc *document.Document) *string {
	for _, obs := range doc.FindAll("ObsCont") {
		campo, ok := obs.Attr("xCampo")
		if !ok || !strings.Contains(strings.ToUpper(campo), "PLACA") {
			continue
		}
		texto := obs.Child("xTexto")
		if texto == nil {
			continue
		}
		if plate, ok := MatchPlate(texto.Content()); ok {
			return strPtr(plate)
		}
	}
	return nil
}
