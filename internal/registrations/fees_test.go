package registrations

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/chaf-events/backend/internal/models"
)

func testCategories() (uuid.UUID, uuid.UUID, map[uuid.UUID]models.Category) {
	quiz := uuid.New()
	debate := uuid.New()
	cats := map[uuid.UUID]models.Category{
		quiz:   {ID: quiz, Name: "Quiz", Fee: 100000, MaxParticipants: 3},
		debate: {ID: debate, Name: "Debate", Fee: 100000, MaxParticipants: 2},
	}
	return quiz, debate, cats
}

func TestComputeSchoolTotal(t *testing.T) {
	quiz, debate, cats := testCategories()

	t.Run("sums selected category fees", func(t *testing.T) {
		total, err := ComputeSchoolTotal([]uuid.UUID{quiz, debate}, cats)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 200000 {
			t.Errorf("total = %d, want 200000", total)
		}
	})

	t.Run("fee does not scale with participant count", func(t *testing.T) {
		total, err := ComputeSchoolTotal([]uuid.UUID{quiz}, cats)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 100000 {
			t.Errorf("total = %d, want 100000", total)
		}
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		if _, err := ComputeSchoolTotal([]uuid.UUID{uuid.New()}, cats); err == nil {
			t.Error("expected error for unknown category")
		}
	})
}

func TestValidateSchoolRegistration(t *testing.T) {
	quiz, debate, cats := testCategories()

	t.Run("valid selection passes", func(t *testing.T) {
		err := ValidateSchoolRegistration(
			[]uuid.UUID{quiz, debate},
			[]ParticipantInput{
				{Name: "Ada", Class: "SS2", CategoryID: quiz},
				{Name: "Bola", Class: "SS1", CategoryID: quiz},
				{Name: "Chidi", Class: "SS3", CategoryID: debate},
			},
			cats)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("empty categories rejected", func(t *testing.T) {
		err := ValidateSchoolRegistration(nil,
			[]ParticipantInput{{Name: "Ada", Class: "SS2", CategoryID: quiz}}, cats)
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty participants rejected", func(t *testing.T) {
		if err := ValidateSchoolRegistration([]uuid.UUID{quiz}, nil, cats); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("duplicate category selection rejected", func(t *testing.T) {
		err := ValidateSchoolRegistration([]uuid.UUID{quiz, quiz},
			[]ParticipantInput{{Name: "Ada", Class: "SS2", CategoryID: quiz}}, cats)
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("participant in unselected category rejected", func(t *testing.T) {
		err := ValidateSchoolRegistration([]uuid.UUID{quiz},
			[]ParticipantInput{{Name: "Chidi", Class: "SS3", CategoryID: debate}}, cats)
		if err == nil {
			t.Error("expected error")
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("want ValidationError, got %T", err)
		}
	})

	t.Run("per-category cap enforced", func(t *testing.T) {
		err := ValidateSchoolRegistration([]uuid.UUID{debate},
			[]ParticipantInput{
				{Name: "A", Class: "SS1", CategoryID: debate},
				{Name: "B", Class: "SS1", CategoryID: debate},
				{Name: "C", Class: "SS1", CategoryID: debate},
			},
			cats)
		if err == nil {
			t.Error("expected error when cap exceeded")
		}
	})

	t.Run("cap counted per category not overall", func(t *testing.T) {
		// 5 participants total is fine as long as each category stays
		// within its own cap.
		err := ValidateSchoolRegistration([]uuid.UUID{quiz, debate},
			[]ParticipantInput{
				{Name: "A", Class: "SS1", CategoryID: quiz},
				{Name: "B", Class: "SS1", CategoryID: quiz},
				{Name: "C", Class: "SS1", CategoryID: quiz},
				{Name: "D", Class: "SS1", CategoryID: debate},
				{Name: "E", Class: "SS1", CategoryID: debate},
			},
			cats)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
