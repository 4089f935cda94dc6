package weighbridge

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/weighbridge/internal/extraction"
	"github.com/zombor/weighbridge/internal/metrics"
	"github.com/zombor/weighbridge/internal/scanning"
	"github.com/zombor/weighbridge/internal/ticket"
	"github.com/zombor/weighbridge/internal/vehicle"
)

// ErrUnknownVehicle is returned when a manual vehicle id is not in the catalog
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Extraction sources reported to metrics
const (
	sourceXML  = "xml"
	sourceScan = "scan"
)

// IDGenerator generates unique names for stored documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Extraction is the outcome of uploading one document
type Extraction struct {
	DocumentPath string             `json:"document_path"`
	ContentType  string             `json:"content_type"`
	Result       extraction.Result  `json:"extraction"`
	Selection    *vehicle.Selection `json:"selection"`
}

// IssueRequest asks for a ticket from a previous extraction. An empty
// VehicleID lets the service auto-select the vehicle.
type IssueRequest struct {
	DocumentPath string            `json:"document_path"`
	ContentType  string            `json:"content_type"`
	Extraction   extraction.Result `json:"extraction"`
	VehicleID    string            `json:"vehicle_id,omitempty"`
}

// Service ties extraction, vehicle selection, ticket computation and
// persistence together
type Service struct {
	db          DB
	storage     Storage
	scanner     scanning.Scanner
	catalog     *vehicle.Catalog
	engine      *ticket.Engine
	extractor   extraction.Extractor
	metrics     *metrics.Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time
// source. scanner may be nil, in which case only XML documents are read.
func NewService(db DB, storage Storage, catalog *vehicle.Catalog, engine *ticket.Engine, scanner scanning.Scanner, m *metrics.Metrics) *Service {
	return NewServiceWithDeps(db, storage, catalog, engine, scanner, m, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, catalog *vehicle.Catalog, engine *ticket.Engine, scanner scanning.Scanner, m *metrics.Metrics, idGen IDGenerator, timeSrc TimeSource) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		catalog:     catalog,
		engine:      engine,
		extractor:   extraction.Extractor{Location: engine.Location()},
		metrics:     m,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long names.
// Dots are kept so dates like 2024.03.15 in the name survive.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.Trim(strings.TrimSpace(base), ".")

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "document"
	}

	return base + unsafeFilenameChars.ReplaceAllString(ext, "")
}

// isXML decides whether a document goes through the XML extractor. Anything
// that is neither XML nor readable by the scanner is also sent there and
// comes back as a malformed document.
func (s *Service) isXML(contentType string, data []byte) bool {
	if strings.Contains(contentType, "xml") {
		return true
	}
	if s.scanner == nil || !scanning.Supports(contentType) {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("<"))
}

// ExtractDocument stores an uploaded document, extracts its fields and
// suggests a vehicle for the extracted weight. Incomplete extractions are
// not errors; they are reported on the returned Result.
func (s *Service) ExtractDocument(filename string, data []byte, contentType string) (*Extraction, error) {
	cleanFilename := sanitizeFilename(filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	var (
		result extraction.Result
		source string
	)
	if s.isXML(contentType, data) {
		source = sourceXML
		result = s.extractor.Extract(data, filename)
	} else {
		source = sourceScan
		fields, err := s.scanner.ScanDocument(data, contentType)
		if err != nil {
			slog.Error("Failed to scan document",
				"filename", filename,
				"content_type", contentType,
				"file_size", len(data),
				"error", err,
			)
			s.metrics.RecordExtraction(source, "scan_failed")
			if err := s.storage.Delete(savedPath); err != nil {
				slog.Warn("Failed to delete file", "filename", savedPath, "error", err)
			}
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		result = s.extractor.FromFields(*fields, scanning.Source, filename)
	}
	s.metrics.RecordExtraction(source, string(result.Kind))

	if result.Error != "" {
		slog.Info("Incomplete extraction", "filename", filename, "kind", result.Kind, "error", result.Error)
	}

	out := &Extraction{
		DocumentPath: savedPath,
		ContentType:  contentType,
		Result:       result,
	}
	if result.NetWeight != nil {
		selection := vehicle.AutoSelect(*result.NetWeight, s.catalog)
		out.Selection = &selection
	}
	return out, nil
}

// resolveVehicle returns the requested vehicle, or the auto-selected one
// when no id is given
func (s *Service) resolveVehicle(req IssueRequest) (vehicle.Vehicle, bool, error) {
	if req.VehicleID != "" {
		v, ok := s.catalog.ByID(req.VehicleID)
		if !ok {
			return vehicle.Vehicle{}, false, fmt.Errorf("%w: %s", ErrUnknownVehicle, req.VehicleID)
		}
		return v, false, nil
	}
	if req.Extraction.NetWeight == nil {
		// the engine reports the missing weight
		return vehicle.Vehicle{}, true, nil
	}
	selection := vehicle.AutoSelect(*req.Extraction.NetWeight, s.catalog)
	if !selection.Found() {
		return vehicle.Vehicle{}, true, fmt.Errorf("%w: %s", ticket.ErrIncompleteInput, selection.Message)
	}
	return *selection.Vehicle, true, nil
}

// IssueTicket computes and persists a ticket. When the document carried no
// issue date the date found in its filename is used instead.
func (s *Service) IssueTicket(req IssueRequest) (*Record, error) {
	v, auto, err := s.resolveVehicle(req)
	if err != nil {
		return nil, err
	}

	issued, err := s.engine.Compute(req.Extraction.WithFilenameDateFallback(), v)
	if err != nil {
		return nil, fmt.Errorf("computing ticket: %w", err)
	}

	record := &Record{
		Ticket:       issued,
		DocumentPath: req.DocumentPath,
		ContentType:  req.ContentType,
		CreatedAt:    s.timeSource.Now(),
	}
	if err := s.db.SaveRecord(record); err != nil {
		return nil, fmt.Errorf("saving ticket to database: %w", err)
	}

	s.metrics.RecordTicket(v.CategoryLabel, auto, record.GrossWeightCalculated)
	slog.Info("Ticket issued",
		"id", record.ID,
		"invoice_id", record.InvoiceID,
		"vehicle_id", record.VehicleID,
		"gross_weight", record.GrossWeightCalculated,
	)
	return record, nil
}

// ProcessDocument extracts a document and issues its ticket with an
// auto-selected vehicle. The extraction is returned even when issuing fails.
func (s *Service) ProcessDocument(filename string, data []byte, contentType string) (*Extraction, *Record, error) {
	extracted, err := s.ExtractDocument(filename, data, contentType)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.IssueTicket(IssueRequest{
		DocumentPath: extracted.DocumentPath,
		ContentType:  extracted.ContentType,
		Extraction:   extracted.Result,
	})
	if err != nil {
		return extracted, nil, err
	}
	return extracted, record, nil
}

// GetTicket retrieves a ticket by id
func (s *Service) GetTicket(id string) (*Record, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return record, nil
}

// ListTickets returns all tickets in issue order
func (s *Service) ListTickets() ([]*Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return records, nil
}

// GetTicketDocument retrieves the source document of a ticket
func (s *Service) GetTicketDocument(id string) ([]byte, string, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting ticket: %w", err)
	}
	if record.DocumentPath == "" {
		return nil, "", fmt.Errorf("ticket %s has no document: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(record.DocumentPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting ticket document: %w", err)
	}
	return data, record.ContentType, nil
}

// Vehicles returns the vehicle catalog
func (s *Service) Vehicles() []vehicle.Vehicle {
	return s.catalog.All()
}
