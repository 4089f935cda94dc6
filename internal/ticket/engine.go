package ticket

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/zombor/weighbridge/internal/extraction"
	"github.com/zombor/weighbridge/internal/vehicle"
)

// ErrIncompleteInput is returned when a ticket is requested for an
// incomplete extraction or without a vehicle
var ErrIncompleteInput = errors.New("incomplete input")

// Issue time window, in seconds since midnight (07:12:50 to 15:45:50)
const (
	EarliestIssueSecond = 7*3600 + 12*60 + 50
	LatestIssueSecond   = 15*3600 + 45*60 + 50
)

// Weight variation bounds
const (
	MaxVariationFactor = 0.002 // ±0.2% of the net weight
	MaxVariationKg     = 20.0
)

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// RandomSource provides uniform random draws. *rand.Rand from math/rand/v2
// satisfies it.
type RandomSource interface {
	// IntN returns a value in [0, n)
	IntN(n int) int
	// Float64 returns a value in [0.0, 1.0)
	Float64() float64
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// globalRandom draws from the math/rand/v2 top-level source, which is safe
// for concurrent use and never hands out the same draw twice.
type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

func (globalRandom) Float64() float64 {
	return rand.Float64()
}

// Engine computes tickets from extraction results
type Engine struct {
	clock    Clock
	random   RandomSource
	location *time.Location
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRandom replaces the random source
func WithRandom(r RandomSource) Option {
	return func(e *Engine) {
		e.random = r
	}
}

// WithLocation sets the location used for dates and time-of-day
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewEngine creates an Engine using the system clock, the global random
// source and time.Local unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:    systemClock{},
		random:   globalRandom{},
		location: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the location tickets are issued in
func (e *Engine) Location() *time.Location {
	return e.location
}

// Compute issues a ticket for a complete extraction result and a resolved
// vehicle. It draws fresh randomness on every call.
func (e *Engine) Compute(r extraction.Result, v vehicle.Vehicle) (Ticket, error) {
	if !r.Complete() {
		reason := r.Error
		if reason == "" {
			reason = "invoice id or net weight missing"
		}
		return Ticket{}, fmt.Errorf("%w: %s", ErrIncompleteInput, reason)
	}
	if v.ID == "" {
		return Ticket{}, fmt.Errorf("%w: no vehicle selected", ErrIncompleteInput)
	}

	netWeight := *r.NetWeight
	if !extraction.ValidWeight(netWeight) {
		return Ticket{}, fmt.Errorf("%w: net weight %v out of range", ErrIncompleteInput, netWeight)
	}

	plate := v.Plate
	if r.ExtractedPlate != nil && *r.ExtractedPlate != "" {
		plate = *r.ExtractedPlate
	}

	return Ticket{
		InvoiceID:             *r.InvoiceID,
		NetWeightInvoice:      netWeight,
		VehicleID:             v.ID,
		PlateNumber:           plate,
		TareWeight:            v.TareWeight,
		GrossWeightCalculated: e.grossWeight(netWeight, v.TareWeight),
		IssueTimestamp:        e.issueTimestamp(r.InvoiceDate),
		Status:                StatusPrinted,
	}, nil
}

// issueTimestamp is the day after the invoice date (or today) at a random
// second inside the issue window. The day is added on calendar components
// in the engine location so month and year boundaries roll over and DST
// shifts never move the date.
func (e *Engine) issueTimestamp(invoiceDate *string) time.Time {
	base := e.clock.Now()
	if invoiceDate != nil {
		if t, ok := extraction.ParseDateTime(*invoiceDate, e.location); ok {
			base = t
		}
	}
	base = base.In(e.location)

	second := EarliestIssueSecond + e.random.IntN(LatestIssueSecond-EarliestIssueSecond+1)
	year, month, day := base.Date()
	return time.Date(year, month, day+1, second/3600, second%3600/60, second%60, 0, e.location)
}

// grossWeight adds a bounded random variation to the net weight, then the
// tare, rounded to the nearest kilogram.
func (e *Engine) grossWeight(netWeight, tare float64) int {
	factor := 1 - MaxVariationFactor + e.random.Float64()*2*MaxVariationFactor
	delta := netWeight * (factor - 1)
	delta = math.Max(-MaxVariationKg, math.Min(MaxVariationKg, delta))
	return int(math.Round(netWeight + delta + tare))
}
