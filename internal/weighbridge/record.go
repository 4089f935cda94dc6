package weighbridge

import (
	"time"

	"github.com/zombor/weighbridge/internal/ticket"
)

// Record is a persisted ticket together with its source document
type Record struct {
	ticket.Ticket
	DocumentPath string    `json:"document_path,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
