package order

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"
)

// TrackingStep is one stage of the simulated delivery pipeline. Timestamp is
// nil until the stage completes; once crossed it is a fixed offset from the
// order's creation time and never changes on later reads.
type TrackingStep struct {
	Label       string
	Description string
	Completed   bool
	Timestamp   *time.Time
}

// TrackingView is the synthetic shipment-progress view for one order,
// recomputed on every read from the order's persisted fields and the
// current time. Nothing in it is stored beyond the order itself.
type TrackingView struct {
	OrderNumber       string
	Status            Status
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery string
	ProgressSteps     []TrackingStep
	CustomerName      string
	CustomerEmail     string
	ShippingAddress   string
	OrderTotal        decimal.Decimal
}

// stage offsets are fixed relative to order creation, so the timeline reads
// as a stable historical narrative regardless of when it is requested.
var trackingStages = []struct {
	label       string
	description string
	offset      time.Duration
}{
	{"Order Placed", "We have received your order.", 0},
	{"Processing", "Your medications are being prepared by our pharmacy team.", 30 * time.Minute},
	{"Shipped", "Your package has left our pharmacy.", 2 * time.Hour},
	{"In Transit", "Your package is on its way to you.", 6 * time.Hour},
	{"Out for Delivery", "Your package is out for delivery.", 48 * time.Hour},
	{"Delivered", "Your package has been delivered.", 72 * time.Hour},
}

var carriers = [...]string{"FedEx", "UPS", "USPS"}

// CarrierFor deterministically picks a carrier for an order number, so
// repeated tracking reads always report the same carrier without persisting
// a choice at confirmation time.
func CarrierFor(orderNumber string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderNumber))
	return carriers[h.Sum32()%uint32(len(carriers))]
}

// statusForElapsed maps time since order creation into the simulated
// delivery status. Intervals are half-open: the lower bound belongs to the
// later stage.
func statusForElapsed(elapsed time.Duration) (Status, int) {
	switch {
	case elapsed < 30*time.Minute:
		return StatusConfirmed, 2
	case elapsed < 2*time.Hour:
		return StatusShipped, 3
	case elapsed < 48*time.Hour:
		return StatusInTransit, 4
	case elapsed < 72*time.Hour:
		return StatusOutForDelivery, 5
	default:
		return StatusDelivered, 6
	}
}

// ProjectTracking computes the tracking view for an order at the given time.
// It is a pure function of the order's persisted fields and now: calling it
// again with a later now never moves the status backward, and a completed
// stage keeps the same timestamp forever.
//
// Orders that never reached confirmation (pending, failed, cancelled) report
// their persisted status with only the initial stage completed.
func ProjectTracking(o *Order, now time.Time) *TrackingView {
	completed := 1
	status := o.Status
	if o.Status == StatusConfirmed {
		status, completed = statusForElapsed(now.Sub(o.CreatedAt))
	}

	steps := make([]TrackingStep, len(trackingStages))
	for i, s := range trackingStages {
		steps[i] = TrackingStep{
			Label:       s.label,
			Description: s.description,
		}
		if i < completed {
			ts := o.CreatedAt.Add(s.offset)
			steps[i].Completed = true
			steps[i].Timestamp = &ts
		}
	}

	trackingNumber := o.TrackingNumber
	if trackingNumber == "" {
		// Display-only placeholder for orders confirmed before tracking
		// number persistence existed; derived from the order number so
		// repeated reads agree.
		h := fnv.New64a()
		_, _ = h.Write([]byte(o.OrderNumber))
		trackingNumber = fmt.Sprintf("TRK%09d", h.Sum64()%1_000_000_000)
	}

	return &TrackingView{
		OrderNumber:       o.OrderNumber,
		Status:            status,
		TrackingNumber:    trackingNumber,
		Carrier:           CarrierFor(o.OrderNumber),
		EstimatedDelivery: o.EstimatedDelivery,
		ProgressSteps:     steps,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		ShippingAddress:   o.ShippingAddress,
		OrderTotal:        o.Total,
	}
}
