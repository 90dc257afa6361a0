package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// OptionLetters 题目选项字母表的上限，选项字母必须是它的连续前缀
const OptionLetters = "ABCDEF"

// Option 单个答案选项
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question 题库中的一道题。题目归属于某学科题池，按作者录入顺序编号。
type Question struct {
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	CorrectLetter string   `json:"correctLetter"`
	Points        int      `json:"points"`
	Pinned        bool     `json:"pinned"`
}

// Normalize 在题库入口处收敛题目形态：校验选项字母为 A.. 连续前缀、
// correctLetter 必须指向真实存在的选项，分值缺省为 1。
// 不合法的题目直接拒绝，不允许松散结构流入生成器。
func (q *Question) Normalize() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("question %q has no options", truncate(q.Text, 30))
	}
	if len(q.Options) > len(OptionLetters) {
		return fmt.Errorf("question %q has %d options, max %d", truncate(q.Text, 30), len(q.Options), len(OptionLetters))
	}

	for i := range q.Options {
		q.Options[i].Letter = strings.ToUpper(strings.TrimSpace(q.Options[i].Letter))
		expected := string(OptionLetters[i])
		if q.Options[i].Letter != expected {
			return fmt.Errorf("question %q option %d has letter %q, expected %q", truncate(q.Text, 30), i, q.Options[i].Letter, expected)
		}
	}

	q.CorrectLetter = strings.ToUpper(strings.TrimSpace(q.CorrectLetter))
	found := false
	for _, opt := range q.Options {
		if opt.Letter == q.CorrectLetter {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("question %q correct letter %q does not match any option", truncate(q.Text, 30), q.CorrectLetter)
	}

	if q.Points <= 0 {
		q.Points = 1
	}
	return nil
}

// CorrectOptionText 返回正确选项的原文，用于洗牌后的一致性校验
func (q *Question) CorrectOptionText() string {
	for _, opt := range q.Options {
		if opt.Letter == q.CorrectLetter {
			return opt.Text
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// QuestionList JSON 列类型
type QuestionList []Question

func (l QuestionList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *QuestionList) Scan(value interface{}) error {
	return jsonScan(l, value)
}
