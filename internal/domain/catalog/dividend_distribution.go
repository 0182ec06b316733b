package catalog

import (
	"time"

	"github.com/corebank/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DividendDistribution is a one-time dividend rate applied across all
// instances of a definition on a due date. Two distributions are equal when
// their due date (calendar day) and rate match, which is the basis for
// de-duplicating re-submissions.
type DividendDistribution struct {
	shared.BaseEntity
	TenantID     uuid.UUID       `json:"tenant_id"`
	DefinitionID uuid.UUID       `json:"definition_id"`
	DueDate      time.Time       `json:"due_date"`
	Rate         decimal.Decimal `json:"rate"`
}

// NewDividendDistribution creates a new dividend distribution
func NewDividendDistribution(tenantID, definitionID uuid.UUID, dueDate time.Time, rate decimal.Decimal) (*DividendDistribution, error) {
	if definitionID == uuid.Nil {
		return nil, shared.NewValidationError("Dividend distribution must reference a definition")
	}
	if rate.IsNegative() {
		return nil, shared.NewValidationError("Dividend rate cannot be negative")
	}
	return &DividendDistribution{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		DefinitionID: definitionID,
		DueDate:      dueDate.Truncate(24 * time.Hour),
		Rate:         rate,
	}, nil
}

// Equals reports whether two distributions share the same (due-date, rate) pair
func (d *DividendDistribution) Equals(other *DividendDistribution) bool {
	if other == nil {
		return false
	}
	return sameDay(d.DueDate, other.DueDate) && d.Rate.Equal(other.Rate)
}

// IsDue reports whether the distribution is due at the given time
func (d *DividendDistribution) IsDue(at time.Time) bool {
	return !d.DueDate.After(at)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
