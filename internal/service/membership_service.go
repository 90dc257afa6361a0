package service

import (
	"fmt"
	"hash/fnv"
	"school_test_backend/internal/model"
	"school_test_backend/internal/repository"
	"school_test_backend/pkg/logger"

	"go.uber.org/zap"
)

// ResolvedPool 成员解析后分给某个学生的一段学科题池
type ResolvedPool struct {
	SubjectID   uint
	GroupLetter *string
	Questions   []model.Question
}

// MembershipService 把"这个学生该拿到哪些学科的哪套题"做成一个
// 显式的命名操作：合并作用域内的兄弟文档，再按学生的分组字母
// 为每个学科挑一个题池。
type MembershipService struct {
	BlockTests *repository.BlockTestRepository
	Enrollment *repository.EnrollmentRepository
}

func NewMembershipService(blockTests *repository.BlockTestRepository, enrollment *repository.EnrollmentRepository) *MembershipService {
	return &MembershipService{BlockTests: blockTests, Enrollment: enrollment}
}

// Resolve 解析一个学生在某作用域下的有效题池序列。
// 返回空切片表示该学生没有任何可考学科——这不是错误，由调用方决定
// 是警告跳过还是接受空变体。
func (s *MembershipService) Resolve(scope model.BlockTestScope, studentID uint) ([]ResolvedPool, error) {
	docs, err := s.BlockTests.FindByScope(scope)
	if err != nil {
		return nil, fmt.Errorf("load sibling block tests: %w", err)
	}

	letters, err := s.Enrollment.SubjectLetters(studentID)
	if err != nil {
		return nil, fmt.Errorf("load subject letters for student %d: %w", studentID, err)
	}

	counts, err := s.Enrollment.QuestionCounts(studentID)
	if err != nil {
		return nil, fmt.Errorf("load question counts for student %d: %w", studentID, err)
	}

	pools := resolvePools(docs, letters, counts)
	if len(pools) == 0 {
		logger.Log.Warn("student has no eligible subjects in scope",
			zap.Uint("studentId", studentID),
			zap.Int("classNumber", scope.ClassNumber),
			zap.Int("periodMonth", scope.PeriodMonth),
			zap.Int("periodYear", scope.PeriodYear))
	}
	return pools, nil
}

// resolvePools 纯函数核心。文档按创建时间升序传入，学科顺序取首次
// 出现的顺序，所有学生一致（卷面学科顺序不随机，只有题目和选项随机）。
//
// 每个学科的选池规则：
//  1. 学生在该学科有分组字母且存在同字母题池 -> 用它；
//  2. 否则存在无字母的通用题池 -> 用它；
//  3. 两者都没有 -> 该学科对这个学生不出卷（不是错误）。
func resolvePools(docs []model.BlockTest, letters map[uint]string, counts map[uint]int) []ResolvedPool {
	type subjectPools struct {
		byLetter map[string]*model.SubjectPool
		common   *model.SubjectPool
	}

	order := make([]uint, 0)
	bySubject := make(map[uint]*subjectPools)

	for di := range docs {
		for pi := range docs[di].SubjectPools {
			pool := &docs[di].SubjectPools[pi]
			sp, ok := bySubject[pool.SubjectID]
			if !ok {
				sp = &subjectPools{byLetter: make(map[string]*model.SubjectPool)}
				bySubject[pool.SubjectID] = sp
				order = append(order, pool.SubjectID)
			}
			if pool.GroupLetter == nil || *pool.GroupLetter == "" {
				if sp.common == nil {
					sp.common = pool
				}
			} else if _, dup := sp.byLetter[*pool.GroupLetter]; !dup {
				sp.byLetter[*pool.GroupLetter] = pool
			}
		}
	}

	resolved := make([]ResolvedPool, 0, len(order))
	for _, subjectID := range order {
		sp := bySubject[subjectID]

		var chosen *model.SubjectPool
		if letter, ok := letters[subjectID]; ok && letter != "" {
			chosen = sp.byLetter[letter]
		}
		if chosen == nil {
			chosen = sp.common
		}
		if chosen == nil || len(chosen.Questions) == 0 {
			continue
		}

		questions := chosen.Questions
		// 学生配置的题量上限：确定性截取前 N 题，同字母学生截得的子集
		// 完全一致，固定题的卷面槽位不变式才能跨学生成立
		if limit, ok := counts[subjectID]; ok && limit > 0 && limit < len(questions) {
			questions = questions[:limit]
		}

		resolved = append(resolved, ResolvedPool{
			SubjectID:   subjectID,
			GroupLetter: chosen.GroupLetter,
			Questions:   questions,
		})
	}
	return resolved
}

// ConfigHash 解析结果的指纹，存在变体上。判分时与当前配置比对，
// 不一致说明卷面可能已经和题库脱节，结果要标记为 stale。
func ConfigHash(pools []ResolvedPool) string {
	h := fnv.New64a()
	for _, pool := range pools {
		letter := "-"
		if pool.GroupLetter != nil {
			letter = *pool.GroupLetter
		}
		fmt.Fprintf(h, "%d:%s:%d;", pool.SubjectID, letter, len(pool.Questions))
		for _, q := range pool.Questions {
			fmt.Fprintf(h, "%s:%d:%d,", q.CorrectLetter, q.Points, len(q.Options))
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
