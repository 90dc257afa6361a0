package service

import (
	"testing"

	"school_test_backend/internal/model"
)

func TestUpsertPool(t *testing.T) {
	t.Run("same subject and letter replaces whole pool", func(t *testing.T) {
		existing := model.SubjectPoolList{poolOf(1, letterPtr("A"), 3)}
		incoming := poolOf(1, letterPtr("A"), 7)

		result := upsertPool(existing, incoming)
		if len(result) != 1 {
			t.Fatalf("got %d pools, want 1", len(result))
		}
		if len(result[0].Questions) != 7 {
			t.Fatalf("pool not replaced: %d questions, want 7", len(result[0].Questions))
		}
	})

	t.Run("same subject different letter appends", func(t *testing.T) {
		existing := model.SubjectPoolList{poolOf(1, letterPtr("A"), 3)}
		result := upsertPool(existing, poolOf(1, letterPtr("B"), 4))
		if len(result) != 2 {
			t.Fatalf("got %d pools, want 2", len(result))
		}
	})

	t.Run("nil letter matches empty letter", func(t *testing.T) {
		empty := ""
		existing := model.SubjectPoolList{poolOf(1, &empty, 3)}
		result := upsertPool(existing, poolOf(1, nil, 5))
		if len(result) != 1 {
			t.Fatalf("nil and empty letter treated as different pools")
		}
		if len(result[0].Questions) != 5 {
			t.Fatalf("pool not replaced: %d questions, want 5", len(result[0].Questions))
		}
	})

	t.Run("new subject appends", func(t *testing.T) {
		existing := model.SubjectPoolList{poolOf(1, nil, 3)}
		result := upsertPool(existing, poolOf(2, nil, 4))
		if len(result) != 2 {
			t.Fatalf("got %d pools, want 2", len(result))
		}
	})
}

func TestNormalizePools(t *testing.T) {
	valid := func() model.SubjectPoolList {
		return model.SubjectPoolList{{
			SubjectID: 1,
			Questions: []model.Question{makeQuestion("2+2=?", "B", []string{"3", "4", "5"}, false)},
		}}
	}

	t.Run("valid pools pass", func(t *testing.T) {
		if err := normalizePools(valid()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid group letter rejected", func(t *testing.T) {
		pools := valid()
		pools[0].GroupLetter = letterPtr("Z")
		if err := normalizePools(pools); err == nil {
			t.Fatal("expected error for group letter Z")
		}
	})

	t.Run("correct letter outside options rejected", func(t *testing.T) {
		pools := valid()
		pools[0].Questions[0].CorrectLetter = "D"
		if err := normalizePools(pools); err == nil {
			t.Fatal("expected error for correct letter outside options")
		}
	})

	t.Run("defaults points to one", func(t *testing.T) {
		pools := valid()
		pools[0].Questions[0].Points = 0
		if err := normalizePools(pools); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pools[0].Questions[0].Points != 1 {
			t.Fatalf("points = %d, want 1", pools[0].Questions[0].Points)
		}
	})
}
