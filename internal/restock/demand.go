package restock

import "strings"

const (
	PaydayMultiplier  = 1.20
	HolidayMultiplier = 1.50
)

// recognizedEvents are the sale/holiday labels that trigger HolidayMultiplier.
var recognizedEvents = map[string]struct{}{
	"11.11":        {},
	"christmas":    {},
	"black friday": {},
	"new year":     {},
	"valentine":    {},
}

// IsRecognizedEvent reports whether label names a demand-boosting event.
func IsRecognizedEvent(label string) bool {
	if label == "" {
		return false
	}
	_, ok := recognizedEvents[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// AdjustDemand scales base daily demand by the payday and holiday multipliers of ctx.
func AdjustDemand(base float64, ctx Context) float64 {
	adjusted := base
	if ctx.IsPayday {
		adjusted *= PaydayMultiplier
	}
	if IsRecognizedEvent(ctx.UpcomingEvent) {
		adjusted *= HolidayMultiplier
	}
	return adjusted
}
