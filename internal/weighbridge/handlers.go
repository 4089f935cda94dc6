package weighbridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/weighbridge/internal/ticket"
)

// maxUploadSize bounds multipart uploads; photographed documents can be large
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// contentTypeFor falls back to the file extension when the upload carries
// no usable content type
func contentTypeFor(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return "application/xml"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

type uploadedFile struct {
	filename    string
	contentType string
	data        []byte
}

// readUpload reads the multipart "file" field, writing the error response
// itself when that fails
func readUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a document to upload.")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return nil, false
	}

	return &uploadedFile{
		filename:    header.Filename,
		contentType: contentTypeFor(header.Header.Get("Content-Type"), header.Filename),
		data:        data,
	}, true
}

// handleIndex serves the upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleExtractDocument stores an upload and returns what could be read from
// it. Incomplete extractions are still a 200; the body says what is missing.
func (s *Server) handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	extracted, err := s.service.ExtractDocument(up.filename, up.data, up.contentType)
	if err != nil {
		slog.Error("Error extracting document", "filename", up.filename, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extracted)
}

// issueStatus maps an issuing error to an HTTP status
func issueStatus(err error) int {
	switch {
	case errors.Is(err, ticket.ErrIncompleteInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownVehicle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleIssueTicket issues a ticket from a previous extraction
func (s *Server) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := s.service.IssueTicket(req)
	if err != nil {
		slog.Error("Error issuing ticket", "error", err)
		writeError(w, issueStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleAutoTicket extracts an upload and issues its ticket in one step
func (s *Server) handleAutoTicket(w http.ResponseWriter, r *http.Request) {
	up, ok := readUpload(w, r)
	if !ok {
		return
	}

	extracted, record, err := s.service.ProcessDocument(up.filename, up.data, up.contentType)
	if err != nil {
		slog.Error("Error processing document", "filename", up.filename, "error", err)
		if extracted == nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, issueStatus(err), map[string]any{
			"error":    err.Error(),
			"document": extracted,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": extracted,
		"ticket":   record,
	})
}

// handleListTickets returns all tickets
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListTickets()
	if err != nil {
		slog.Error("Error listing tickets", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetTicket returns a single ticket
func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetTicket(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Ticket not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting ticket", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetTicketDocument returns the source document of a ticket
func (s *Server) handleGetTicketDocument(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetTicketDocument(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleExportTickets streams the XLSX export
func (s *Server) handleExportTickets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tickets.xlsx"`)
	if err := s.service.ExportTickets(w); err != nil {
		slog.Error("Error exporting tickets", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleListVehicles returns the vehicle catalog
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Vehicles())
}
