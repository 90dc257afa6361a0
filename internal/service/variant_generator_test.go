package service

import (
	"math/rand"
	"regexp"
	"testing"

	"school_test_backend/internal/model"
)

func letterPtr(s string) *string { return &s }

func makeQuestion(text, correct string, optionTexts []string, pinned bool) model.Question {
	opts := make([]model.Option, len(optionTexts))
	for i, t := range optionTexts {
		opts[i] = model.Option{Letter: string(model.OptionLetters[i]), Text: t}
	}
	return model.Question{
		Text:          text,
		Options:       opts,
		CorrectLetter: correct,
		Points:        1,
		Pinned:        pinned,
	}
}

func testPools() []ResolvedPool {
	return []ResolvedPool{
		{
			SubjectID: 1,
			Questions: []model.Question{
				makeQuestion("q0", "A", []string{"a0", "b0", "c0", "d0"}, false),
				makeQuestion("q1", "B", []string{"a1", "b1", "c1", "d1"}, true),
				makeQuestion("q2", "C", []string{"a2", "b2", "c2", "d2"}, false),
			},
		},
		{
			SubjectID:   2,
			GroupLetter: letterPtr("B"),
			Questions: []model.Question{
				makeQuestion("q3", "D", []string{"a3", "b3", "c3", "d3"}, false),
				makeQuestion("q4", "A", []string{"a4", "b4", "c4", "d4"}, true),
			},
		},
	}
}

func TestGenerateVariantOrderIsPermutation(t *testing.T) {
	pools := testPools()
	order, shuffled := GenerateVariant(pools, rand.New(rand.NewSource(7)))

	n := TotalQuestions(pools)
	if len(order) != n || len(shuffled) != n {
		t.Fatalf("expected %d positions, got order=%d shuffled=%d", n, len(order), len(shuffled))
	}

	seen := make(map[int]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			t.Fatalf("canonical index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("canonical index %d appears twice", idx)
		}
		seen[idx] = true
	}

	for p, q := range shuffled {
		if q.CanonicalIndex != order[p] {
			t.Errorf("position %d: shuffled canonical index %d != order %d", p, q.CanonicalIndex, order[p])
		}
	}
}

func TestGenerateVariantKeepsPinnedSlots(t *testing.T) {
	pools := testPools()
	// q1 在规范序 1，q4 在规范序 4
	for seed := int64(0); seed < 20; seed++ {
		order, shuffled := GenerateVariant(pools, rand.New(rand.NewSource(seed)))
		if order[1] != 1 {
			t.Fatalf("seed %d: pinned question moved from slot 1 to canonical %d", seed, order[1])
		}
		if order[4] != 4 {
			t.Fatalf("seed %d: pinned question moved from slot 4 to canonical %d", seed, order[4])
		}
		if !shuffled[1].Pinned || !shuffled[4].Pinned {
			t.Fatalf("seed %d: pinned flag lost on pinned slots", seed)
		}
	}
}

func TestGenerateVariantRemapsCorrectLetter(t *testing.T) {
	pools := testPools()
	flatCorrectText := map[string]string{}
	for _, pool := range pools {
		for _, q := range pool.Questions {
			flatCorrectText[q.Text] = q.CorrectOptionText()
		}
	}

	for seed := int64(0); seed < 20; seed++ {
		_, shuffled := GenerateVariant(pools, rand.New(rand.NewSource(seed)))
		for p, q := range shuffled {
			found := ""
			for _, opt := range q.Options {
				if opt.Letter == q.CorrectLetter {
					found = opt.Text
				}
			}
			if found != flatCorrectText[q.Text] {
				t.Fatalf("seed %d position %d: correct letter %q points at %q, want %q",
					seed, p, q.CorrectLetter, found, flatCorrectText[q.Text])
			}
		}
	}
}

func TestGenerateVariantReassignsLettersFromA(t *testing.T) {
	_, shuffled := GenerateVariant(testPools(), rand.New(rand.NewSource(3)))
	for p, q := range shuffled {
		for i, opt := range q.Options {
			if opt.Letter != string(model.OptionLetters[i]) {
				t.Fatalf("position %d option %d: letter %q, want %q", p, i, opt.Letter, string(model.OptionLetters[i]))
			}
		}
	}
}

func TestGenerateVariantPerfectAnswersScoreFull(t *testing.T) {
	_, shuffled := GenerateVariant(testPools(), rand.New(rand.NewSource(11)))

	detected := map[int]string{}
	for p, q := range shuffled {
		detected[p+1] = q.CorrectLetter
	}

	_, total, max := ScoreAnswers(shuffled, detected)
	if total != max || max == 0 {
		t.Fatalf("perfect answers scored %d/%d", total, max)
	}
}

func TestGenerateVariantDeterministicUnderSeed(t *testing.T) {
	orderA, shuffledA := GenerateVariant(testPools(), rand.New(rand.NewSource(42)))
	orderB, shuffledB := GenerateVariant(testPools(), rand.New(rand.NewSource(42)))

	for i := range orderA {
		if orderA[i] != orderB[i] {
			t.Fatalf("same seed produced different orders at %d", i)
		}
	}
	for i := range shuffledA {
		if shuffledA[i].CorrectLetter != shuffledB[i].CorrectLetter {
			t.Fatalf("same seed produced different option shuffles at %d", i)
		}
	}
}

func TestGenerateVariantDegenerateInputs(t *testing.T) {
	t.Run("empty pools", func(t *testing.T) {
		order, shuffled := GenerateVariant(nil, rand.New(rand.NewSource(1)))
		if len(order) != 0 || len(shuffled) != 0 {
			t.Fatalf("expected empty variant, got %d/%d", len(order), len(shuffled))
		}
	})

	t.Run("all pinned keeps canonical order", func(t *testing.T) {
		pools := []ResolvedPool{{
			SubjectID: 1,
			Questions: []model.Question{
				makeQuestion("q0", "A", []string{"a", "b"}, true),
				makeQuestion("q1", "B", []string{"a", "b"}, true),
				makeQuestion("q2", "A", []string{"a", "b"}, true),
			},
		}}
		order, _ := GenerateVariant(pools, rand.New(rand.NewSource(5)))
		for i, idx := range order {
			if idx != i {
				t.Fatalf("all-pinned variant reordered: position %d got canonical %d", i, idx)
			}
		}
	})

	t.Run("single option question", func(t *testing.T) {
		pools := []ResolvedPool{{
			SubjectID: 1,
			Questions: []model.Question{
				makeQuestion("q0", "A", []string{"only"}, false),
			},
		}}
		_, shuffled := GenerateVariant(pools, rand.New(rand.NewSource(9)))
		if shuffled[0].CorrectLetter != "A" {
			t.Fatalf("single option correct letter = %q, want A", shuffled[0].CorrectLetter)
		}
	})
}

func TestNewVariantCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := NewVariantCode(8)
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match expected format", code)
		}
		seen[code] = true
	}
	// 200 个码全撞车的概率可以忽略
	if len(seen) < 2 {
		t.Fatal("variant codes are not varying")
	}
}

func TestNewVariantCodeLengthFallback(t *testing.T) {
	if got := len(NewVariantCode(0)); got != 8 {
		t.Fatalf("zero length fell back to %d, want 8", got)
	}
	if got := len(NewVariantCode(100)); got != 8 {
		t.Fatalf("oversized length fell back to %d, want 8", got)
	}
	if got := len(NewVariantCode(12)); got != 12 {
		t.Fatalf("explicit length produced %d, want 12", got)
	}
}
