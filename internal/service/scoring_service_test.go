package service

import (
	"testing"

	"school_test_backend/internal/model"
)

func shuffledFixture() model.ShuffledQuestionList {
	return model.ShuffledQuestionList{
		{Text: "q0", CorrectLetter: "B", Points: 1, Options: []model.Option{{Letter: "A"}, {Letter: "B"}, {Letter: "C"}}},
		{Text: "q1", CorrectLetter: "A", Points: 2, Options: []model.Option{{Letter: "A"}, {Letter: "B"}, {Letter: "C"}}},
		{Text: "q2", CorrectLetter: "C", Points: 3, Options: []model.Option{{Letter: "A"}, {Letter: "B"}, {Letter: "C"}}},
	}
}

func TestScoreAnswers(t *testing.T) {
	tests := []struct {
		name      string
		detected  map[int]string
		wantTotal int
		wantMax   int
	}{
		{
			name:      "all correct",
			detected:  map[int]string{1: "B", 2: "A", 3: "C"},
			wantTotal: 6,
			wantMax:   6,
		},
		{
			name:      "all wrong",
			detected:  map[int]string{1: "A", 2: "B", 3: "A"},
			wantTotal: 0,
			wantMax:   6,
		},
		{
			name:      "blanks are incorrect not errors",
			detected:  map[int]string{2: "A"},
			wantTotal: 2,
			wantMax:   6,
		},
		{
			name:      "empty sheet",
			detected:  map[int]string{},
			wantTotal: 0,
			wantMax:   6,
		},
		{
			name:      "lowercase and whitespace normalized",
			detected:  map[int]string{1: " b ", 2: "a", 3: "c"},
			wantTotal: 6,
			wantMax:   6,
		},
		{
			name:      "out of range positions ignored",
			detected:  map[int]string{1: "B", 99: "A", 0: "C", -5: "B"},
			wantTotal: 1,
			wantMax:   6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers, total, max := ScoreAnswers(shuffledFixture(), tt.detected)
			if total != tt.wantTotal || max != tt.wantMax {
				t.Fatalf("scored %d/%d, want %d/%d", total, max, tt.wantTotal, tt.wantMax)
			}
			if len(answers) != 3 {
				t.Fatalf("result has %d answer rows, want 3", len(answers))
			}
			for _, a := range answers {
				if a.IsCorrect && a.Points == 0 {
					t.Errorf("position %d marked correct with zero points", a.Position)
				}
				if !a.IsCorrect && a.Points != 0 {
					t.Errorf("position %d marked incorrect with %d points", a.Position, a.Points)
				}
			}
		})
	}
}

func TestScoreAnswersIdempotent(t *testing.T) {
	detected := map[int]string{1: "B", 2: "C", 3: "C"}
	_, totalA, maxA := ScoreAnswers(shuffledFixture(), detected)
	_, totalB, maxB := ScoreAnswers(shuffledFixture(), detected)
	if totalA != totalB || maxA != maxB {
		t.Fatalf("re-scoring changed result: %d/%d vs %d/%d", totalA, maxA, totalB, maxB)
	}
}

func TestScoreAnswersRecordsSelectedAndCorrect(t *testing.T) {
	answers, _, _ := ScoreAnswers(shuffledFixture(), map[int]string{1: "C"})

	if answers[0].Selected != "C" || answers[0].Correct != "B" || answers[0].IsCorrect {
		t.Fatalf("position 1 row wrong: %+v", answers[0])
	}
	if answers[1].Selected != "" || answers[1].IsCorrect {
		t.Fatalf("blank position 2 row wrong: %+v", answers[1])
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		total int
		max   int
		want  float64
	}{
		{"full marks", 6, 6, 100},
		{"zero of six", 0, 6, 0},
		{"one third", 2, 6, 33.33},
		{"empty variant never divides by zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentage(tt.total, tt.max); got != tt.want {
				t.Fatalf("percentage(%d, %d) = %v, want %v", tt.total, tt.max, got, tt.want)
			}
		})
	}
}

func TestScoreAgainstEmptyVariant(t *testing.T) {
	answers, total, max := ScoreAnswers(nil, map[int]string{1: "A"})
	if len(answers) != 0 || total != 0 || max != 0 {
		t.Fatalf("empty variant scored %d/%d with %d rows", total, max, len(answers))
	}
}
