package model

import (
	"database/sql/driver"
	"time"
)

// ResultAnswer 按卷面位置记录的一道题的判分明细。
// Selected 为空串表示空白或识别失败的涂卡，按错误计分。
type ResultAnswer struct {
	Position         int    `json:"position"` // 卷面位置，1 起
	Selected         string `json:"selected"`
	Correct          string `json:"correct"` // 重映射后的正确字母
	IsCorrect        bool   `json:"isCorrect"`
	Points           int    `json:"points"`
	WasEdited        bool   `json:"wasEdited,omitempty"`
	OriginalSelected string `json:"originalSelected,omitempty"`
}

// ResultAnswerList JSON 列类型
type ResultAnswerList []ResultAnswer

func (l ResultAnswerList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *ResultAnswerList) Scan(value interface{}) error {
	return jsonScan(l, value)
}

// TestResult 一份答题卡的判分结果，可由同一输入幂等重算。
// swagger:model TestResult
type TestResult struct {
	UUIDBase
	BlockTestID      uint             `gorm:"index:idx_result_student;type:bigint unsigned;not null" json:"blockTestId"`
	StudentID        uint             `gorm:"index:idx_result_student;index;type:bigint unsigned;not null" json:"studentId"`
	VariantID        string           `gorm:"index;type:varchar(36)" json:"variantId"`
	BranchID         uint             `gorm:"index;type:bigint unsigned" json:"branchId"`
	Answers          ResultAnswerList `gorm:"type:json" json:"answers"`
	TotalPoints      int              `gorm:"not null" json:"totalPoints"`
	MaxPoints        int              `gorm:"not null" json:"maxPoints"`
	Percentage       float64          `gorm:"not null" json:"percentage"`
	Stale            bool             `gorm:"default:false" json:"stale"`
	ScannedImagePath string           `gorm:"size:512" json:"scannedImagePath,omitempty"`
	ScannedAt        *time.Time       `json:"scannedAt,omitempty"`
}

func (TestResult) TableName() string {
	return "test_results"
}
