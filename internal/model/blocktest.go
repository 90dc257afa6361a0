package model

import (
	"database/sql/driver"
	"time"
)

// SubjectPool 某学科在一份试卷文档里的题池。GroupLetter 为 nil 表示
// 全班通用题池，非空则只发给对应字母分组的学生。
type SubjectPool struct {
	SubjectID   uint       `json:"subjectId"`
	GroupLetter *string    `json:"groupLetter"`
	Questions   []Question `json:"questions"`
}

// SubjectPoolList JSON 列类型
type SubjectPoolList []SubjectPool

func (l SubjectPoolList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *SubjectPoolList) Scan(value interface{}) error {
	return jsonScan(l, value)
}

// BlockTest 块测试文档。同一 (branch, classNumber, periodMonth, periodYear)
// 作用域下可能存在多份文档（按学科分次录入），在成员解析时合并，
// 不在录入时合并。
// swagger:model BlockTest
type BlockTest struct {
	BaseModel
	BranchID     uint            `gorm:"index:idx_bt_scope;type:bigint unsigned;not null" json:"branchId"`
	ClassNumber  int             `gorm:"index:idx_bt_scope;not null" json:"classNumber"`
	PeriodMonth  int             `gorm:"index:idx_bt_scope;not null" json:"periodMonth"` // 1-12
	PeriodYear   int             `gorm:"index:idx_bt_scope;not null" json:"periodYear"`
	Date         time.Time       `gorm:"index" json:"date"`
	SubjectPools SubjectPoolList `gorm:"type:json" json:"subjectPools"`
	CreatedBy    uint            `gorm:"index;type:bigint unsigned" json:"createdBy"`
}

func (BlockTest) TableName() string {
	return "block_tests"
}

// Scope 块测试的合并作用域键
type BlockTestScope struct {
	BranchID    uint `json:"branchId"`
	ClassNumber int  `json:"classNumber"`
	PeriodMonth int  `json:"periodMonth"`
	PeriodYear  int  `json:"periodYear"`
}

func (t *BlockTest) Scope() BlockTestScope {
	return BlockTestScope{
		BranchID:    t.BranchID,
		ClassNumber: t.ClassNumber,
		PeriodMonth: t.PeriodMonth,
		PeriodYear:  t.PeriodYear,
	}
}
