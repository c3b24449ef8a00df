package recommendations

import (
	"time"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
)

const (
	SourceText     = "text"
	SourceDocument = "document"
)

// Record is a persisted recommendation request and its latest outcome.
type Record struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"userId"`
	InputText      string                 `json:"inputText"`
	Source         string                 `json:"source"`
	DocumentKey    string                 `json:"documentKey,omitempty"`
	AdditionalInfo *engine.AdditionalInfo `json:"additionalInfo,omitempty"`
	State          engine.State           `json:"state"`
	Outcome        engine.Outcome         `json:"outcome"`
	ConfidenceFlag engine.ConfidenceFlag  `json:"confidenceFlag,omitempty"`
	Platform       catalog.Platform       `json:"platform,omitempty"`
	BusinessType   catalog.BusinessType   `json:"businessType,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// apply copies the outcome and its denormalised columns onto the record.
func (r *Record) apply(out engine.Outcome) {
	r.Outcome = out
	r.State = out.State()
	r.ConfidenceFlag = ""
	r.Platform = ""
	r.BusinessType = ""
	if rec := out.Recommendation; rec != nil {
		r.ConfidenceFlag = rec.ConfidenceFlag
		r.Platform = rec.Platform
		r.BusinessType = rec.BusinessType
	}
}
