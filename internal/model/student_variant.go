package model

import "database/sql/driver"

// ShuffledQuestion 变体里的一道题：携带题目内容、洗牌后的选项顺序和
// 重映射后的正确字母，并标注来源学科和分组字母，供打印端按学科分节。
type ShuffledQuestion struct {
	CanonicalIndex int      `json:"canonicalIndex"`
	SubjectID      uint     `json:"subjectId"`
	GroupLetter    *string  `json:"groupLetter"`
	Text           string   `json:"text"`
	Options        []Option `json:"options"`
	CorrectLetter  string   `json:"correctLetter"` // 洗牌后的正确字母
	Points         int      `json:"points"`
	Pinned         bool     `json:"pinned"`
}

// ShuffledQuestionList JSON 列类型
type ShuffledQuestionList []ShuffledQuestion

func (l ShuffledQuestionList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *ShuffledQuestionList) Scan(value interface{}) error {
	return jsonScan(l, value)
}

// IntList JSON 列类型，用于排列存储
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *IntList) Scan(value interface{}) error {
	return jsonScan(l, value)
}

// StudentVariant 一个学生对一份块测试的个性化变体。
// QuestionOrder[p] = 规范题序号，p 为卷面位置（0 起）；
// ShuffledQuestions 与卷面位置一一对应。
// 变体整体替换、从不部分修改。
// swagger:model StudentVariant
type StudentVariant struct {
	UUIDBase
	TestID            uint                 `gorm:"uniqueIndex:idx_variant_student;uniqueIndex:idx_variant_code;type:bigint unsigned;not null" json:"testId"`
	StudentID         uint                 `gorm:"uniqueIndex:idx_variant_student;index;type:bigint unsigned;not null" json:"studentId"`
	VariantCode       string               `gorm:"uniqueIndex:idx_variant_code;size:16;not null" json:"variantCode"`
	QRPayload         string               `gorm:"size:64" json:"qrPayload"`
	ConfigHash        string               `gorm:"size:32" json:"configHash"`
	QuestionOrder     IntList              `gorm:"type:json" json:"questionOrder"`
	ShuffledQuestions ShuffledQuestionList `gorm:"type:json" json:"shuffledQuestions"`
}

func (StudentVariant) TableName() string {
	return "student_variants"
}
