package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"school_test_backend/internal/config"
	"school_test_backend/internal/model"
	"school_test_backend/internal/util"
	"school_test_backend/pkg/logger"
	"school_test_backend/pkg/monitoring"
	"school_test_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 批量生成中跳过学生的原因
const (
	SkipReasonNoSubjects   = "no_eligible_subjects"
	SkipReasonStudentGone  = "student_not_found"
	SkipReasonPersistError = "persist_error"
)

type SkippedStudent struct {
	StudentID uint   `json:"studentId"`
	Reason    string `json:"reason"`
}

// BatchResult 一次批量生成的汇总，部分失败不是整体失败
type BatchResult struct {
	Generated int              `json:"generated"`
	Skipped   []SkippedStudent `json:"skipped"`
}

// variantStore 变体持久层中本服务用到的面
type variantStore interface {
	Replace(ctx context.Context, variant *model.StudentVariant) error
	IssuedCodes(testID uint) (map[string]bool, error)
	DeleteByTest(ctx context.Context, testID uint, studentIDs []uint) (int64, error)
	DeleteByStudentsAndTests(ctx context.Context, studentIDs []uint, testIDs []uint) (int64, error)
	FindByCode(ctx context.Context, code string) (*model.StudentVariant, error)
	FindByStudentAndTest(studentID, testID uint) (*model.StudentVariant, error)
	ListByTest(testID uint) ([]model.StudentVariant, error)
}

type blockTestStore interface {
	FindByID(id uint) (*model.BlockTest, error)
	FindForClasses(branchIDs []uint, classNumbers []int) ([]model.BlockTest, error)
}

type rosterStore interface {
	FindStudents(ids []uint) ([]model.Student, error)
	SaveStudentTestConfig(cfg *model.StudentTestConfig) error
	UpsertGroupSubjectLetter(groupID, subjectID uint, letter string) error
	StudentIDsOfGroup(groupID uint) ([]uint, error)
}

type poolResolver interface {
	Resolve(scope model.BlockTestScope, studentID uint) ([]ResolvedPool, error)
}

// VariantService 变体生命周期：批量生成、按作用域失效、读取。
// 同一测试的并发生成请求串行化，不同测试互不阻塞。
type VariantService struct {
	Variants   variantStore
	BlockTests blockTestStore
	Enrollment rosterStore
	Membership poolResolver
	Cfg        config.VariantConfig

	testLocks sync.Map // testID -> *sync.Mutex
}

func NewVariantService(
	variants variantStore,
	blockTests blockTestStore,
	enrollment rosterStore,
	membership poolResolver,
	cfg config.VariantConfig,
) *VariantService {
	return &VariantService{
		Variants:   variants,
		BlockTests: blockTests,
		Enrollment: enrollment,
		Membership: membership,
		Cfg:        cfg,
	}
}

func (s *VariantService) lockTest(testID uint) *sync.Mutex {
	mu, _ := s.testLocks.LoadOrStore(testID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Materialize 为一批学生生成（或重新生成）某测试的变体。
//
// 每个学生独立提交：解析题池、生成卷面、事务内删旧插新。中途取消
// 或单个学生失败时，已提交的学生保留新变体，其余保留旧变体。
// 跳过的学生带原因返回给调用方，不会让整批失败。
func (s *VariantService) Materialize(ctx context.Context, testID uint, studentIDs []uint) (*BatchResult, error) {
	if len(studentIDs) == 0 {
		return nil, util.ErrEmptyStudentList
	}

	ctx, span := tracing.Tracer.Start(ctx, "variant.materialize")
	span.SetAttributes(
		attribute.Int("test.id", int(testID)),
		attribute.Int("students.count", len(studentIDs)),
	)
	defer span.End()

	mu := s.lockTest(testID)
	mu.Lock()
	defer mu.Unlock()

	test, err := s.BlockTests.FindByID(testID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrBlockTestNotFound
		}
		return nil, err
	}
	scope := test.Scope()

	issued, err := s.Variants.IssuedCodes(testID)
	if err != nil {
		return nil, fmt.Errorf("load issued codes: %w", err)
	}

	students, err := s.Enrollment.FindStudents(studentIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(students))
	for _, st := range students {
		found[st.ID] = true
	}

	result := &BatchResult{}
	for _, studentID := range studentIDs {
		// 学生之间是取消点，进行中的学生提交完才停
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !found[studentID] {
			result.Skipped = append(result.Skipped, SkippedStudent{StudentID: studentID, Reason: SkipReasonStudentGone})
			monitoring.VariantSkipped.WithLabelValues(SkipReasonStudentGone).Inc()
			continue
		}

		pools, err := s.Membership.Resolve(scope, studentID)
		if err != nil {
			return result, err
		}
		if len(pools) == 0 {
			result.Skipped = append(result.Skipped, SkippedStudent{StudentID: studentID, Reason: SkipReasonNoSubjects})
			monitoring.VariantSkipped.WithLabelValues(SkipReasonNoSubjects).Inc()
			continue
		}

		code, err := s.uniqueCode(issued)
		if err != nil {
			return result, err
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(testID)<<32 ^ int64(studentID)))
		variant := BuildVariant(testID, studentID, code, ConfigHash(pools), pools, rng)

		if err := s.Variants.Replace(ctx, variant); err != nil {
			logger.Log.Error("persist variant failed",
				zap.Uint("testId", testID),
				zap.Uint("studentId", studentID),
				zap.Error(err))
			result.Skipped = append(result.Skipped, SkippedStudent{StudentID: studentID, Reason: SkipReasonPersistError})
			monitoring.VariantSkipped.WithLabelValues(SkipReasonPersistError).Inc()
			continue
		}

		issued[code] = true
		result.Generated++
		monitoring.VariantGenerated.Inc()
	}

	logger.Log.Info("variant batch finished",
		zap.Uint("testId", testID),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// uniqueCode 在每测试范围内生成不冲突的变体码。码空间 16^8，
// 正常永远一次命中；重试上限只是防御配置错误（码长被调成 1 之类）。
func (s *VariantService) uniqueCode(issued map[string]bool) (string, error) {
	for i := 0; i < s.Cfg.MaxCodeAttempts; i++ {
		code := NewVariantCode(s.Cfg.CodeLength)
		if !issued[code] {
			return code, nil
		}
	}
	return "", util.ErrCodeSpaceExhausted
}

// Invalidate 删除某测试的变体；studentIDs 非空时只作废这部分学生的
func (s *VariantService) Invalidate(ctx context.Context, testID uint, studentIDs []uint) (int64, error) {
	mu := s.lockTest(testID)
	mu.Lock()
	defer mu.Unlock()

	deleted, err := s.Variants.DeleteByTest(ctx, testID, studentIDs)
	if err != nil {
		return 0, err
	}
	monitoring.VariantInvalidated.Add(float64(deleted))
	logger.Log.Info("variants invalidated",
		zap.Uint("testId", testID),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

// openPeriodTestIDs 过滤出周期仍为当月或未来的测试。
// 过去周期的卷子已经打印、可能还压着没扫描，配置变更不追溯作废，
// 否则旧答题卡按码找不到变体，永远判不了分。
func openPeriodTestIDs(tests []model.BlockTest, now time.Time) []uint {
	year, month := now.Year(), int(now.Month())
	ids := make([]uint, 0, len(tests))
	for _, t := range tests {
		if t.PeriodYear > year || (t.PeriodYear == year && t.PeriodMonth >= month) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// invalidateForStudents 作废若干学生在其班级进行中周期测试下的变体。
// 范围是学生所在班级 + 当前及未来周期，过去周期不动。
func (s *VariantService) invalidateForStudents(ctx context.Context, studentIDs []uint) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	students, err := s.Enrollment.FindStudents(studentIDs)
	if err != nil {
		return 0, err
	}
	branchSet := make(map[uint]bool)
	classSet := make(map[int]bool)
	for _, st := range students {
		branchSet[st.BranchID] = true
		classSet[st.ClassNumber] = true
	}
	branchIDs := make([]uint, 0, len(branchSet))
	for id := range branchSet {
		branchIDs = append(branchIDs, id)
	}
	classNumbers := make([]int, 0, len(classSet))
	for n := range classSet {
		classNumbers = append(classNumbers, n)
	}

	tests, err := s.BlockTests.FindForClasses(branchIDs, classNumbers)
	if err != nil {
		return 0, err
	}
	testIDs := openPeriodTestIDs(tests, time.Now())
	if len(testIDs) == 0 {
		return 0, nil
	}

	deleted, err := s.Variants.DeleteByStudentsAndTests(ctx, studentIDs, testIDs)
	if err != nil {
		return 0, err
	}
	monitoring.VariantInvalidated.Add(float64(deleted))
	return deleted, nil
}

// UpdateGroupSubjectLetter 改分组的学科字母并作废组内学生在进行中
// 周期的变体。字母变了意味着这些学生该拿到另一套题池，待发的卷面
// 不再可信；已归档周期的卷子保持可判分。
func (s *VariantService) UpdateGroupSubjectLetter(ctx context.Context, groupID, subjectID uint, letter string) (int64, error) {
	if !util.IsGroupLetter(letter) {
		return 0, fmt.Errorf("invalid group letter %q", letter)
	}

	if err := s.Enrollment.UpsertGroupSubjectLetter(groupID, subjectID, letter); err != nil {
		return 0, err
	}

	studentIDs, err := s.Enrollment.StudentIDsOfGroup(groupID)
	if err != nil {
		return 0, err
	}
	deleted, err := s.invalidateForStudents(ctx, studentIDs)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("group letter changed, variants invalidated",
		zap.Uint("groupId", groupID),
		zap.Uint("subjectId", subjectID),
		zap.String("letter", letter),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

// UpdateStudentTestConfig 保存学生级配置并作废该学生进行中周期的变体
func (s *VariantService) UpdateStudentTestConfig(ctx context.Context, cfg *model.StudentTestConfig) (int64, error) {
	for _, sc := range cfg.Subjects {
		if sc.GroupLetter != nil && *sc.GroupLetter != "" && !util.IsGroupLetter(*sc.GroupLetter) {
			return 0, fmt.Errorf("invalid group letter %q for subject %d", *sc.GroupLetter, sc.SubjectID)
		}
		if sc.QuestionCount < 0 {
			return 0, fmt.Errorf("negative question count for subject %d", sc.SubjectID)
		}
	}

	if err := s.Enrollment.SaveStudentTestConfig(cfg); err != nil {
		return 0, err
	}

	return s.invalidateForStudents(ctx, []uint{cfg.StudentID})
}

func (s *VariantService) GetByCode(ctx context.Context, code string) (*model.StudentVariant, error) {
	v, err := s.Variants.FindByCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrVariantNotFound
	}
	return v, err
}

func (s *VariantService) GetByStudentAndTest(studentID, testID uint) (*model.StudentVariant, error) {
	v, err := s.Variants.FindByStudentAndTest(studentID, testID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrVariantNotFound
	}
	return v, err
}

func (s *VariantService) ListByTest(testID uint) ([]model.StudentVariant, error) {
	return s.Variants.ListByTest(testID)
}
