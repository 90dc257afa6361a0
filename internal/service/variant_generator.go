package service

import (
	"math/rand"
	"school_test_backend/internal/model"
	"strings"

	"github.com/google/uuid"
)

// GenerateVariant 为一个学生生成变体的纯核心。
//
// 1. 解析出的题池按学科顺序拼成规范题序 0..N-1；
// 2. pinned 题固定在自己的规范位置，其余下标做 Fisher-Yates 洗牌后
//    依次填进剩下的卷面槽位——pinned 题在所有学生的卷面上占同一槽位；
// 3. 每道题的选项各自独立洗牌，字母按新顺序从 A 重新编号，
//    正确字母重映射到原正确选项落点的新字母；
// 4. questionOrder[p] = 卷面位置 p 上的规范题序号，判分时反查。
//
// rng 由调用方注入，同一种子产出同一变体。
func GenerateVariant(pools []ResolvedPool, rng *rand.Rand) (model.IntList, model.ShuffledQuestionList) {
	type canonical struct {
		question    model.Question
		subjectID   uint
		groupLetter *string
	}

	flat := make([]canonical, 0)
	for _, pool := range pools {
		for _, q := range pool.Questions {
			flat = append(flat, canonical{question: q, subjectID: pool.SubjectID, groupLetter: pool.GroupLetter})
		}
	}

	n := len(flat)
	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !flat[i].question.Pinned {
			free = append(free, i)
		}
	}

	// 无偏洗牌只作用于非固定下标；free 为空时整卷保持原序
	rng.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})

	order := make(model.IntList, n)
	next := 0
	for p := 0; p < n; p++ {
		if flat[p].question.Pinned {
			order[p] = p
		} else {
			order[p] = free[next]
			next++
		}
	}

	shuffled := make(model.ShuffledQuestionList, n)
	for p := 0; p < n; p++ {
		src := flat[order[p]]
		options, correct := shuffleOptions(src.question, rng)
		shuffled[p] = model.ShuffledQuestion{
			CanonicalIndex: order[p],
			SubjectID:      src.subjectID,
			GroupLetter:    src.groupLetter,
			Text:           src.question.Text,
			Options:        options,
			CorrectLetter:  correct,
			Points:         src.question.Points,
			Pinned:         src.question.Pinned,
		}
	}

	return order, shuffled
}

// shuffleOptions 对一道题的选项做完整无偏洗牌（含正确项），
// 按新顺序重新赋予 A.. 字母，返回新选项序列和重映射后的正确字母。
// 单选项题洗牌是空操作。
func shuffleOptions(q model.Question, rng *rand.Rand) ([]model.Option, string) {
	perm := rng.Perm(len(q.Options))

	options := make([]model.Option, len(q.Options))
	correct := ""
	for newIdx, oldIdx := range perm {
		letter := string(model.OptionLetters[newIdx])
		options[newIdx] = model.Option{
			Letter: letter,
			Text:   q.Options[oldIdx].Text,
		}
		if q.Options[oldIdx].Letter == q.CorrectLetter {
			correct = letter
		}
	}
	return options, correct
}

// NewVariantCode 生成变体码：UUID 前缀大写，人可手写、扫描可读。
// 碰撞由调用方在每测试范围内检测重试，码不是保密信息。
func NewVariantCode(length int) string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	if length <= 0 || length > len(code) {
		length = 8
	}
	return code[:length]
}

// BuildVariant 组装完整的变体文档
func BuildVariant(testID, studentID uint, code string, configHash string, pools []ResolvedPool, rng *rand.Rand) *model.StudentVariant {
	order, shuffled := GenerateVariant(pools, rng)
	return &model.StudentVariant{
		TestID:            testID,
		StudentID:         studentID,
		VariantCode:       code,
		QRPayload:         code,
		ConfigHash:        configHash,
		QuestionOrder:     order,
		ShuffledQuestions: shuffled,
	}
}

// TotalQuestions 解析结果的总题数
func TotalQuestions(pools []ResolvedPool) int {
	n := 0
	for _, p := range pools {
		n += len(p.Questions)
	}
	return n
}
