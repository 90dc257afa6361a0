package service

import (
	"context"
	"math"
	"strings"
	"time"

	"school_test_backend/internal/model"
	"school_test_backend/internal/repository"
	"school_test_backend/internal/util"
	"school_test_backend/pkg/logger"
	"school_test_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScoringService 按卷面位置判分。扫描识别出的答案只有位置信息，
// 对错必须对照该学生自己的变体，而不是规范题库。
type ScoringService struct {
	Variants   *repository.VariantRepository
	BlockTests *repository.BlockTestRepository
	Results    *repository.TestResultRepository
	Membership *MembershipService
}

func NewScoringService(
	variants *repository.VariantRepository,
	blockTests *repository.BlockTestRepository,
	results *repository.TestResultRepository,
	membership *MembershipService,
) *ScoringService {
	return &ScoringService{
		Variants:   variants,
		BlockTests: blockTests,
		Results:    results,
		Membership: membership,
	}
}

// ScoreAnswers 纯判分核心。detected 的键是卷面位置（1 起），值是
// 学生涂的字母。空白或越界位置按未作答处理：不得分，不报错。
func ScoreAnswers(questions model.ShuffledQuestionList, detected map[int]string) (model.ResultAnswerList, int, int) {
	answers := make(model.ResultAnswerList, 0, len(questions))
	total, max := 0, 0

	for i, q := range questions {
		pos := i + 1
		selected := strings.ToUpper(strings.TrimSpace(detected[pos]))

		correct := selected != "" && selected == q.CorrectLetter
		points := 0
		if correct {
			points = q.Points
		}

		answers = append(answers, model.ResultAnswer{
			Position:  pos,
			Selected:  selected,
			Correct:   q.CorrectLetter,
			IsCorrect: correct,
			Points:    points,
		})
		total += points
		max += q.Points
	}
	return answers, total, max
}

func percentage(total, max int) float64 {
	if max == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(max)*10000) / 100
}

// ScoreFromScan 按变体码判一张扫描的答题卡。重复扫描同一张卡
// 覆盖旧结果，不累积。判分同时核对变体上存的配置指纹，分组或
// 题池在出卷后改过的话，结果标记 stale，交给老师复核。
func (s *ScoringService) ScoreFromScan(ctx context.Context, code string, detected map[int]string, scannedImagePath string) (*model.TestResult, error) {
	variant, err := s.Variants.FindByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrVariantNotFound
		}
		return nil, err
	}

	test, err := s.BlockTests.FindByID(variant.TestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrBlockTestNotFound
		}
		return nil, err
	}

	stale := false
	pools, err := s.Membership.Resolve(test.Scope(), variant.StudentID)
	if err != nil {
		// 配置读不出来时照常判分，只是没法核对指纹
		logger.Log.Warn("config hash check skipped",
			zap.String("variantCode", code),
			zap.Error(err))
	} else if ConfigHash(pools) != variant.ConfigHash {
		stale = true
	}

	answers, total, max := ScoreAnswers(variant.ShuffledQuestions, detected)

	now := time.Now()
	result := &model.TestResult{
		BlockTestID:      variant.TestID,
		StudentID:        variant.StudentID,
		VariantID:        variant.ID,
		BranchID:         test.BranchID,
		Answers:          answers,
		TotalPoints:      total,
		MaxPoints:        max,
		Percentage:       percentage(total, max),
		Stale:            stale,
		ScannedImagePath: scannedImagePath,
		ScannedAt:        &now,
	}

	if err := s.Results.Replace(result); err != nil {
		return nil, err
	}

	staleLabel := "false"
	if stale {
		staleLabel = "true"
		logger.Log.Warn("scored against stale variant",
			zap.String("variantCode", code),
			zap.Uint("testId", variant.TestID),
			zap.Uint("studentId", variant.StudentID))
	}
	monitoring.AnswerSheetsScored.WithLabelValues(staleLabel).Inc()

	return result, nil
}

// Rescore 老师人工改判若干位置的识别结果后重新计分。
// 首次改动保留识别原值，重复改动不覆盖它。
func (s *ScoringService) Rescore(resultID string, edits map[int]string) (*model.TestResult, error) {
	result, err := s.Results.FindByID(resultID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrResultNotFound
		}
		return nil, err
	}

	variant, err := s.Variants.FindByID(result.VariantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrVariantNotFound
		}
		return nil, err
	}

	byPos := make(map[int]*model.ResultAnswer, len(result.Answers))
	for i := range result.Answers {
		byPos[result.Answers[i].Position] = &result.Answers[i]
	}

	for pos, letter := range edits {
		answer, ok := byPos[pos]
		if ok && pos >= 1 && pos <= len(variant.ShuffledQuestions) {
			letter = strings.ToUpper(strings.TrimSpace(letter))
			if !answer.WasEdited {
				answer.OriginalSelected = answer.Selected
				answer.WasEdited = true
			}
			answer.Selected = letter

			q := variant.ShuffledQuestions[pos-1]
			answer.IsCorrect = letter != "" && letter == q.CorrectLetter
			answer.Points = 0
			if answer.IsCorrect {
				answer.Points = q.Points
			}
		}
	}

	total := 0
	for _, a := range result.Answers {
		total += a.Points
	}
	result.TotalPoints = total
	result.Percentage = percentage(total, result.MaxPoints)

	if err := s.Results.Save(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ScoringService) GetResult(id string) (*model.TestResult, error) {
	result, err := s.Results.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrResultNotFound
	}
	return result, err
}

func (s *ScoringService) ListByTest(testID uint) ([]model.TestResult, error) {
	return s.Results.ListByTest(testID)
}

func (s *ScoringService) ListByStudent(studentID uint) ([]model.TestResult, error) {
	return s.Results.ListByStudent(studentID)
}
