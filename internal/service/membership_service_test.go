package service

import (
	"testing"

	"school_test_backend/internal/model"
)

func poolOf(subjectID uint, letter *string, questionCount int) model.SubjectPool {
	questions := make([]model.Question, questionCount)
	for i := range questions {
		questions[i] = makeQuestion("q", "A", []string{"a", "b", "c"}, false)
	}
	return model.SubjectPool{SubjectID: subjectID, GroupLetter: letter, Questions: questions}
}

func TestResolvePoolsLetterChoice(t *testing.T) {
	docs := []model.BlockTest{
		{SubjectPools: model.SubjectPoolList{
			poolOf(1, letterPtr("A"), 2),
			poolOf(1, letterPtr("B"), 3),
			poolOf(1, nil, 4),
			poolOf(2, nil, 5),
			poolOf(3, letterPtr("A"), 6),
		}},
	}

	tests := []struct {
		name    string
		letters map[uint]string
		want    map[uint]int // subjectID -> 选中题池的题数；缺席 = 被排除
	}{
		{
			name:    "exact letter match",
			letters: map[uint]string{1: "B"},
			want:    map[uint]int{1: 3, 2: 5},
		},
		{
			name:    "no letter falls back to common pool",
			letters: map[uint]string{},
			want:    map[uint]int{1: 4, 2: 5},
		},
		{
			name:    "letter without matching pool falls back to common",
			letters: map[uint]string{1: "C"},
			want:    map[uint]int{1: 4, 2: 5},
		},
		{
			name:    "no letter and no common pool excludes subject",
			letters: map[uint]string{1: "A"},
			want:    map[uint]int{1: 2, 2: 5},
		},
		{
			name:    "lettered subject included when letter matches",
			letters: map[uint]string{1: "A", 3: "A"},
			want:    map[uint]int{1: 2, 2: 5, 3: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pools := resolvePools(docs, tt.letters, nil)
			got := map[uint]int{}
			for _, p := range pools {
				got[p.SubjectID] = len(p.Questions)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("resolved subjects %v, want %v", got, tt.want)
			}
			for sid, count := range tt.want {
				if got[sid] != count {
					t.Errorf("subject %d: got %d questions, want %d", sid, got[sid], count)
				}
			}
		})
	}
}

func TestResolvePoolsSubjectOrderByFirstAppearance(t *testing.T) {
	docs := []model.BlockTest{
		{SubjectPools: model.SubjectPoolList{poolOf(5, nil, 1), poolOf(2, nil, 1)}},
		{SubjectPools: model.SubjectPoolList{poolOf(9, nil, 1), poolOf(5, letterPtr("A"), 1)}},
	}

	pools := resolvePools(docs, nil, nil)
	wantOrder := []uint{5, 2, 9}
	if len(pools) != len(wantOrder) {
		t.Fatalf("resolved %d subjects, want %d", len(pools), len(wantOrder))
	}
	for i, want := range wantOrder {
		if pools[i].SubjectID != want {
			t.Errorf("position %d: subject %d, want %d", i, pools[i].SubjectID, want)
		}
	}
}

func TestResolvePoolsSiblingDocsDedupe(t *testing.T) {
	// 同学科同字母的池，先录入的文档赢
	first := poolOf(1, nil, 2)
	second := poolOf(1, nil, 7)
	docs := []model.BlockTest{
		{SubjectPools: model.SubjectPoolList{first}},
		{SubjectPools: model.SubjectPoolList{second}},
	}

	pools := resolvePools(docs, nil, nil)
	if len(pools) != 1 {
		t.Fatalf("resolved %d pools, want 1", len(pools))
	}
	if len(pools[0].Questions) != 2 {
		t.Fatalf("later sibling overrode earlier pool: got %d questions, want 2", len(pools[0].Questions))
	}
}

func TestResolvePoolsQuestionCountTruncation(t *testing.T) {
	docs := []model.BlockTest{
		{SubjectPools: model.SubjectPoolList{poolOf(1, nil, 10)}},
	}

	tests := []struct {
		name   string
		counts map[uint]int
		want   int
	}{
		{"limit below pool size", map[uint]int{1: 4}, 4},
		{"limit above pool size", map[uint]int{1: 50}, 10},
		{"zero means unlimited", map[uint]int{1: 0}, 10},
		{"no config", nil, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pools := resolvePools(docs, nil, tt.counts)
			if len(pools) != 1 {
				t.Fatalf("resolved %d pools, want 1", len(pools))
			}
			if len(pools[0].Questions) != tt.want {
				t.Errorf("got %d questions, want %d", len(pools[0].Questions), tt.want)
			}
		})
	}
}

func TestResolvePoolsEmptyScope(t *testing.T) {
	if pools := resolvePools(nil, map[uint]string{1: "A"}, nil); len(pools) != 0 {
		t.Fatalf("empty scope resolved %d pools", len(pools))
	}
}

func TestConfigHashReflectsPoolChanges(t *testing.T) {
	base := []ResolvedPool{{
		SubjectID: 1,
		Questions: []model.Question{
			makeQuestion("q0", "A", []string{"a", "b", "c"}, false),
			makeQuestion("q1", "B", []string{"a", "b", "c"}, false),
		},
	}}

	h1 := ConfigHash(base)
	if h1 != ConfigHash(base) {
		t.Fatal("hash is not stable for identical pools")
	}

	changed := []ResolvedPool{{
		SubjectID: 1,
		Questions: []model.Question{
			makeQuestion("q0", "A", []string{"a", "b", "c"}, false),
			makeQuestion("q1", "C", []string{"a", "b", "c"}, false),
		},
	}}
	if h1 == ConfigHash(changed) {
		t.Fatal("hash unchanged after correct letter change")
	}

	relettered := []ResolvedPool{{
		SubjectID:   1,
		GroupLetter: letterPtr("B"),
		Questions:   base[0].Questions,
	}}
	if h1 == ConfigHash(relettered) {
		t.Fatal("hash unchanged after group letter change")
	}
}
