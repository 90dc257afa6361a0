package service

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"school_test_backend/internal/config"
	"school_test_backend/internal/model"
	"school_test_backend/internal/util"
	"school_test_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// 内存版变体存储，契约与持久层一致：
// Replace 以 (test, student) 为键删旧插新，删除按学生与测试集合过滤
type fakeVariantStore struct {
	rows []*model.StudentVariant
}

func (f *fakeVariantStore) Replace(ctx context.Context, variant *model.StudentVariant) error {
	kept := f.rows[:0]
	for _, v := range f.rows {
		if !(v.TestID == variant.TestID && v.StudentID == variant.StudentID) {
			kept = append(kept, v)
		}
	}
	f.rows = append(kept, variant)
	return nil
}

func (f *fakeVariantStore) IssuedCodes(testID uint) (map[string]bool, error) {
	codes := make(map[string]bool)
	for _, v := range f.rows {
		if v.TestID == testID {
			codes[v.VariantCode] = true
		}
	}
	return codes, nil
}

func (f *fakeVariantStore) DeleteByTest(ctx context.Context, testID uint, studentIDs []uint) (int64, error) {
	only := make(map[uint]bool, len(studentIDs))
	for _, id := range studentIDs {
		only[id] = true
	}
	var deleted int64
	kept := f.rows[:0]
	for _, v := range f.rows {
		if v.TestID == testID && (len(only) == 0 || only[v.StudentID]) {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeVariantStore) DeleteByStudentsAndTests(ctx context.Context, studentIDs []uint, testIDs []uint) (int64, error) {
	students := make(map[uint]bool, len(studentIDs))
	for _, id := range studentIDs {
		students[id] = true
	}
	tests := make(map[uint]bool, len(testIDs))
	for _, id := range testIDs {
		tests[id] = true
	}
	var deleted int64
	kept := f.rows[:0]
	for _, v := range f.rows {
		if students[v.StudentID] && tests[v.TestID] {
			deleted++
			continue
		}
		kept = append(kept, v)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeVariantStore) FindByCode(ctx context.Context, code string) (*model.StudentVariant, error) {
	for _, v := range f.rows {
		if v.VariantCode == code {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVariantStore) FindByStudentAndTest(studentID, testID uint) (*model.StudentVariant, error) {
	for _, v := range f.rows {
		if v.StudentID == studentID && v.TestID == testID {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVariantStore) ListByTest(testID uint) ([]model.StudentVariant, error) {
	var out []model.StudentVariant
	for _, v := range f.rows {
		if v.TestID == testID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVariantStore) countFor(testID, studentID uint) int {
	n := 0
	for _, v := range f.rows {
		if v.TestID == testID && v.StudentID == studentID {
			n++
		}
	}
	return n
}

type fakeBlockTestStore struct {
	tests map[uint]*model.BlockTest
}

func (f *fakeBlockTestStore) FindByID(id uint) (*model.BlockTest, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeBlockTestStore) FindForClasses(branchIDs []uint, classNumbers []int) ([]model.BlockTest, error) {
	var out []model.BlockTest
	for _, t := range f.tests {
		out = append(out, *t)
	}
	return out, nil
}

type fakeRoster struct {
	students map[uint]model.Student
	groups   map[uint][]uint
}

func (f *fakeRoster) FindStudents(ids []uint) ([]model.Student, error) {
	var out []model.Student
	for _, id := range ids {
		if st, ok := f.students[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeRoster) SaveStudentTestConfig(cfg *model.StudentTestConfig) error { return nil }

func (f *fakeRoster) UpsertGroupSubjectLetter(groupID, subjectID uint, letter string) error {
	return nil
}

func (f *fakeRoster) StudentIDsOfGroup(groupID uint) ([]uint, error) {
	return f.groups[groupID], nil
}

type fakeResolver struct {
	pools map[uint][]ResolvedPool // studentID -> pools
}

func (f *fakeResolver) Resolve(scope model.BlockTestScope, studentID uint) ([]ResolvedPool, error) {
	return f.pools[studentID], nil
}

func blockTestAt(id uint, year, month int) *model.BlockTest {
	return &model.BlockTest{
		BaseModel:   model.BaseModel{ID: id},
		BranchID:    1,
		ClassNumber: 9,
		PeriodMonth: month,
		PeriodYear:  year,
	}
}

func serviceFixture(now time.Time) (*VariantService, *fakeVariantStore) {
	store := &fakeVariantStore{}
	blocks := &fakeBlockTestStore{tests: map[uint]*model.BlockTest{
		1: blockTestAt(1, now.Year(), int(now.Month())),
	}}
	roster := &fakeRoster{
		students: map[uint]model.Student{
			10: {BaseModel: model.BaseModel{ID: 10}, FullName: "A", ClassNumber: 9, BranchID: 1},
			11: {BaseModel: model.BaseModel{ID: 11}, FullName: "B", ClassNumber: 9, BranchID: 1},
			12: {BaseModel: model.BaseModel{ID: 12}, FullName: "C", ClassNumber: 9, BranchID: 1},
		},
		groups: map[uint][]uint{5: {10, 11}},
	}
	resolver := &fakeResolver{pools: map[uint][]ResolvedPool{
		10: testPools(),
		11: testPools(),
		12: testPools(),
	}}
	svc := NewVariantService(store, blocks, roster, resolver,
		config.VariantConfig{CodeLength: 8, MaxCodeAttempts: 32})
	return svc, store
}

func TestMaterializeReplacesInsteadOfAccumulating(t *testing.T) {
	svc, store := serviceFixture(time.Now())
	students := []uint{10, 11, 12}

	firstCodes := map[uint]string{}
	for run := 0; run < 2; run++ {
		result, err := svc.Materialize(context.Background(), 1, students)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if result.Generated != 3 || len(result.Skipped) != 0 {
			t.Fatalf("run %d: generated %d skipped %d, want 3/0", run, result.Generated, len(result.Skipped))
		}
		if run == 0 {
			for _, v := range store.rows {
				firstCodes[v.StudentID] = v.VariantCode
			}
		}
	}

	// 重新生成后每个学生仍恰好一行，旧行被替换而不是累积
	if len(store.rows) != 3 {
		t.Fatalf("store holds %d rows after regeneration, want 3", len(store.rows))
	}
	for _, id := range students {
		if n := store.countFor(1, id); n != 1 {
			t.Fatalf("student %d has %d variant rows, want 1", id, n)
		}
	}
	replaced := false
	for _, v := range store.rows {
		if firstCodes[v.StudentID] != v.VariantCode {
			replaced = true
		}
	}
	if !replaced {
		t.Fatal("regeneration kept all first-run codes, rows were not replaced")
	}
}

func TestMaterializeSkipsUnknownStudents(t *testing.T) {
	svc, store := serviceFixture(time.Now())

	result, err := svc.Materialize(context.Background(), 1, []uint{10, 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Generated != 1 {
		t.Fatalf("generated %d, want 1", result.Generated)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipReasonStudentGone {
		t.Fatalf("skipped %+v, want one %s", result.Skipped, SkipReasonStudentGone)
	}
	if len(store.rows) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(store.rows))
	}
}

func TestGroupLetterChangeKeepsPastPeriodVariants(t *testing.T) {
	now := time.Now()
	svc, store := serviceFixture(now)

	past := now.AddDate(0, -2, 0)
	blocks := svc.BlockTests.(*fakeBlockTestStore)
	blocks.tests[2] = blockTestAt(2, past.Year(), int(past.Month()))

	// 学生 10 在两个周期都有已发的变体
	store.rows = []*model.StudentVariant{
		{TestID: 1, StudentID: 10, VariantCode: "OPEN0001"},
		{TestID: 2, StudentID: 10, VariantCode: "PAST0001"},
		{TestID: 1, StudentID: 12, VariantCode: "OTHR0001"},
	}

	deleted, err := svc.UpdateGroupSubjectLetter(context.Background(), 5, 1, "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d variants, want 1", deleted)
	}

	// 进行中周期的变体作废，过去周期和组外学生的保留
	if _, err := store.FindByCode(context.Background(), "OPEN0001"); err != gorm.ErrRecordNotFound {
		t.Fatal("open-period variant survived the letter change")
	}
	if _, err := store.FindByCode(context.Background(), "PAST0001"); err != nil {
		t.Fatal("past-period variant was invalidated, printed sheet can no longer be scored")
	}
	if _, err := store.FindByCode(context.Background(), "OTHR0001"); err != nil {
		t.Fatal("variant of a student outside the group was invalidated")
	}
}

func TestOpenPeriodTestIDs(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	tests := []model.BlockTest{
		*blockTestAt(1, 2025, 12), // 去年
		*blockTestAt(2, 2026, 1),  // 过去周期
		*blockTestAt(3, 2026, 3),  // 当前周期
		*blockTestAt(4, 2026, 7),  // 未来周期
		*blockTestAt(5, 2027, 1),  // 明年
	}

	got := openPeriodTestIDs(tests, now)
	want := map[uint]bool{3: true, 4: true, 5: true}
	if len(got) != len(want) {
		t.Fatalf("got %v open tests, want ids 3,4,5", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("test %d counted as open period", id)
		}
	}
}

func TestUniqueCode(t *testing.T) {
	s := &VariantService{Cfg: config.VariantConfig{CodeLength: 8, MaxCodeAttempts: 32}}

	t.Run("avoids issued codes", func(t *testing.T) {
		issued := map[string]bool{}
		for i := 0; i < 100; i++ {
			code, err := s.uniqueCode(issued)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if issued[code] {
				t.Fatalf("code %q issued twice", code)
			}
			if len(code) != 8 {
				t.Fatalf("code %q has length %d, want 8", code, len(code))
			}
			issued[code] = true
		}
	})

	t.Run("exhausted attempts surface as error", func(t *testing.T) {
		broken := &VariantService{Cfg: config.VariantConfig{CodeLength: 8, MaxCodeAttempts: 0}}
		if _, err := broken.uniqueCode(nil); err != util.ErrCodeSpaceExhausted {
			t.Fatalf("got %v, want ErrCodeSpaceExhausted", err)
		}
	})
}

func TestBuildVariantCarriesIdentityAndHash(t *testing.T) {
	pools := testPools()
	hash := ConfigHash(pools)
	v := BuildVariant(3, 42, "AB12CD34", hash, pools, rand.New(rand.NewSource(1)))

	if v.TestID != 3 || v.StudentID != 42 {
		t.Fatalf("identity not carried: test=%d student=%d", v.TestID, v.StudentID)
	}
	if v.VariantCode != "AB12CD34" || v.QRPayload != "AB12CD34" {
		t.Fatalf("code not carried: %q / %q", v.VariantCode, v.QRPayload)
	}
	if v.ConfigHash != hash {
		t.Fatalf("config hash not carried")
	}
	if len(v.QuestionOrder) != TotalQuestions(pools) || len(v.ShuffledQuestions) != TotalQuestions(pools) {
		t.Fatalf("variant size mismatch: %d/%d", len(v.QuestionOrder), len(v.ShuffledQuestions))
	}
}
