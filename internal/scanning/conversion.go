package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// documentScanPrompt is shared by all providers
const documentScanPrompt = `You are reading a Brazilian fiscal document: a DACTE (printed CT-e, cargo transport document) or a DANFE (printed NF-e, electronic invoice). Read all text and extract:

1. **invoice_id**: the document number ("Número", "Nº CT-e", "Nº NF-e"). Digits only, without series.
2. **net_weight**: the cargo weight in kilograms. On a DACTE use the quantity whose type is "PESO REAL"; on a DANFE use "PESO LÍQUIDO". Use a dot as the decimal separator and no thousands separator.
3. **invoice_date**: the emission date and time ("Data e hora de emissão") as YYYY-MM-DDTHH:MM:SS.
4. **plate**: the vehicle license plate (three letters followed by four characters, e.g. ABC1D23), if printed.

Return ONLY valid JSON in this exact format:
{
  "invoice_id": "12345",
  "net_weight": 0.0,
  "invoice_date": "YYYY-MM-DDTHH:MM:SS",
  "plate": "ABC1D23"
}

If you cannot find a field, use null for it. Do not include any text before or after the JSON. Do not use markdown code blocks.`

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// pdfToPNG renders the first page of a PDF; a DACTE or DANFE fits on one page
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

// imageToPNG re-encodes JPEG, GIF and HEIC/HEIF photos as PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	if isHEIC(imageData, mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return encodePNG(img)
	}

	img, _, err = image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("unsupported image format (supported: JPEG, PNG, GIF, HEIC, HEIF, PDF): %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC checks the ftyp box brand as well as the declared MIME type
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// preparePNG converts whatever was uploaded into a PNG the models accept
func preparePNG(data []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMimeType(contentType)
	switch {
	case mimeType == "application/pdf":
		return pdfToPNG(data)
	case mimeType == "image/png" && !isHEIC(data, mimeType):
		return data, nil
	default:
		return imageToPNG(data, mimeType)
	}
}
