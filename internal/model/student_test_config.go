package model

import "database/sql/driver"

// SubjectConfig 学生在某学科的应试配置：分组字母（nil = 通用题池）
// 和题量上限（0 = 整个题池）。
type SubjectConfig struct {
	SubjectID     uint    `json:"subjectId"`
	QuestionCount int     `json:"questionCount"`
	GroupLetter   *string `json:"groupLetter"`
	IsAdditional  bool    `json:"isAdditional"`
}

// SubjectConfigList JSON 列类型
type SubjectConfigList []SubjectConfig

func (l SubjectConfigList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *SubjectConfigList) Scan(value interface{}) error {
	return jsonScan(l, value)
}

// StudentTestConfig 学生级别的应试配置，优先于分组级别的
// GroupSubjectConfig。每个学生至多一条。
// swagger:model StudentTestConfig
type StudentTestConfig struct {
	BaseModel
	StudentID uint              `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"studentId"`
	BranchID  uint              `gorm:"index;type:bigint unsigned" json:"branchId"`
	Subjects  SubjectConfigList `gorm:"type:json" json:"subjects"`
}

func (StudentTestConfig) TableName() string {
	return "student_test_configs"
}
