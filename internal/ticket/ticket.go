package ticket

import "time"

// StatusPrinted is the only status an issued ticket ever has
const StatusPrinted = "Printed"

// Ticket is an issued weighbridge ticket. Weights are in kilograms. ID is
// empty until the ticket is persisted.
type Ticket struct {
	ID                    string    `json:"id,omitempty"`
	InvoiceID             string    `json:"invoice_id"`
	NetWeightInvoice      float64   `json:"net_weight_invoice"`
	VehicleID             string    `json:"vehicle_id"`
	PlateNumber           string    `json:"plate_number"`
	TareWeight            float64   `json:"tare_weight"`
	GrossWeightCalculated int       `json:"gross_weight_calculated"`
	IssueTimestamp        time.Time `json:"issue_timestamp"`
	Status                string    `json:"status"`
}
