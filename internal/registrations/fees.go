package registrations

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chaf-events/backend/internal/models"
)

// ValidationError is a field-level rejection reported before any row is
// written. Financial stakes make silent failures unacceptable, so the field
// and reason always reach the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParticipantInput is one seat requested in a school registration.
type ParticipantInput struct {
	Name       string    `json:"name" binding:"required"`
	Class      string    `json:"class" binding:"required"`
	CategoryID uuid.UUID `json:"category_id" binding:"required"`
}

// ComputeSchoolTotal sums the fee of each selected category.
func ComputeSchoolTotal(selected []uuid.UUID, cats map[uuid.UUID]models.Category) (int64, error) {
	var total int64
	for _, id := range selected {
		cat, ok := cats[id]
		if !ok {
			return 0, &ValidationError{Field: "categories", Message: fmt.Sprintf("unknown category %s", id)}
		}
		total += cat.Fee
	}
	return total, nil
}

// ValidateSchoolRegistration checks category selections and participants
// against reference data: at least one category, every participant assigned
// to a selected category, and per-category head counts within the cap.
func ValidateSchoolRegistration(selected []uuid.UUID, participants []ParticipantInput, cats map[uuid.UUID]models.Category) error {
	if len(selected) == 0 {
		return &ValidationError{Field: "categories", Message: "select at least one category"}
	}
	if len(participants) == 0 {
		return &ValidationError{Field: "participants", Message: "add at least one participant"}
	}

	selectedSet := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		if _, ok := cats[id]; !ok {
			return &ValidationError{Field: "categories", Message: fmt.Sprintf("unknown category %s", id)}
		}
		if selectedSet[id] {
			return &ValidationError{Field: "categories", Message: fmt.Sprintf("category %s selected twice", id)}
		}
		selectedSet[id] = true
	}

	counts := make(map[uuid.UUID]int)
	for i, p := range participants {
		if !selectedSet[p.CategoryID] {
			return &ValidationError{
				Field:   fmt.Sprintf("participants[%d].category_id", i),
				Message: "participant assigned to a category that was not selected",
			}
		}
		counts[p.CategoryID]++
	}

	for id, n := range counts {
		cat := cats[id]
		if n > cat.MaxParticipants {
			return &ValidationError{
				Field:   "participants",
				Message: fmt.Sprintf("category %q allows at most %d participants, got %d", cat.Name, cat.MaxParticipants, n),
			}
		}
	}
	return nil
}
