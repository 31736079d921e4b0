package domain

import "strings"

// FulfillmentType tells whether goods sit in the marketplace's warehouse (FBO)
// or in the seller's own warehouse (FBS).
type FulfillmentType string

const (
	FulfillmentUnknown FulfillmentType = "unknown"
	FulfillmentFBO     FulfillmentType = "fbo"
	FulfillmentFBS     FulfillmentType = "fbs"
)

var fulfillmentLabels = map[FulfillmentType]string{
	FulfillmentFBO: "Склад WB",
	FulfillmentFBS: "Склад продавца",
}

var fulfillmentCodes = map[string]FulfillmentType{
	"fbo":            FulfillmentFBO,
	"склад wb":       FulfillmentFBO,
	"wb":             FulfillmentFBO,
	"fbs":            FulfillmentFBS,
	"склад продавца": FulfillmentFBS,
	"seller":         FulfillmentFBS,
	"self":           FulfillmentFBS,
	"marketplace":    FulfillmentFBS,
	"маркетплейс":    FulfillmentFBS,
}

// FulfillmentLabel returns the label the orders feed uses for a type.
func FulfillmentLabel(t FulfillmentType) string {
	if label, ok := fulfillmentLabels[t]; ok {
		return label
	}

	return "Неизвестно"
}

// ParseFulfillmentType maps a feed tag (case-insensitive) to a type.
// Unrecognised or empty tags yield FulfillmentUnknown and false.
func ParseFulfillmentType(tag string) (FulfillmentType, bool) {
	t, ok := fulfillmentCodes[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return FulfillmentUnknown, false
	}

	return t, ok
}

// DataQuality documents whether a run's per-warehouse breakdown is authoritative.
type DataQuality string

const (
	QualityRealDetailed   DataQuality = "real-detailed"
	QualityCachedDetailed DataQuality = "cached-detailed"
	QualityTotalsOnly     DataQuality = "totals-only"
)

// Rank orders qualities from most (2) to least (0) trustworthy.
func (q DataQuality) Rank() int {
	switch q {
	case QualityRealDetailed:
		return 2
	case QualityCachedDetailed:
		return 1
	default:
		return 0
	}
}

// RunStatus represents the state of a sync run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)
