package model

import "testing"

func question(correct string, letters ...string) Question {
	opts := make([]Option, len(letters))
	for i, l := range letters {
		opts[i] = Option{Letter: l, Text: "text " + l}
	}
	return Question{Text: "sample question", Options: opts, CorrectLetter: correct, Points: 1}
}

func TestQuestionNormalize(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid three options", question("B", "A", "B", "C"), false},
		{"valid single option", question("A", "A"), false},
		{"six options max", question("F", "A", "B", "C", "D", "E", "F"), false},
		{"lowercase letters normalized", question("b", "a", "b", "c"), false},
		{"empty text", Question{Options: []Option{{Letter: "A"}}, CorrectLetter: "A"}, true},
		{"no options", Question{Text: "q", CorrectLetter: "A"}, true},
		{"seven options", question("A", "A", "B", "C", "D", "E", "F", "G"), true},
		{"non contiguous letters", question("A", "A", "C"), true},
		{"letters not starting at A", question("B", "B", "C"), true},
		{"correct letter outside options", question("D", "A", "B", "C"), true},
		{"empty correct letter", question("", "A", "B"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuestionNormalizeDefaultsPoints(t *testing.T) {
	q := question("A", "A", "B")
	q.Points = 0
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Points != 1 {
		t.Fatalf("points = %d, want 1", q.Points)
	}

	q.Points = 5
	if err := q.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Points != 5 {
		t.Fatalf("explicit points overwritten: %d", q.Points)
	}
}

func TestCorrectOptionText(t *testing.T) {
	q := question("B", "A", "B", "C")
	if got := q.CorrectOptionText(); got != "text B" {
		t.Fatalf("CorrectOptionText() = %q, want %q", got, "text B")
	}
}
