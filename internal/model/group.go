package model

// Group 班级分组。Letter 为空表示未分组的普通班组。
// swagger:model Group
type Group struct {
	BaseModel
	Name        string `gorm:"size:255;not null" json:"name"`
	ClassNumber int    `gorm:"index;not null" json:"classNumber"`
	BranchID    uint   `gorm:"index;type:bigint unsigned" json:"branchId"`
}

func (Group) TableName() string {
	return "groups"
}

type StudentGroup struct {
	BaseModel
	StudentID uint `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	GroupID   uint `gorm:"index;type:bigint unsigned;not null" json:"groupId"`
}

func (StudentGroup) TableName() string {
	return "student_groups"
}

// GroupSubjectConfig 某分组在某学科使用的字母（A-F），决定该组学生拿哪套题库
type GroupSubjectConfig struct {
	BaseModel
	GroupID     uint   `gorm:"uniqueIndex:idx_group_subject;type:bigint unsigned;not null" json:"groupId"`
	SubjectID   uint   `gorm:"uniqueIndex:idx_group_subject;type:bigint unsigned;not null" json:"subjectId"`
	GroupLetter string `gorm:"size:1" json:"groupLetter"`
}

func (GroupSubjectConfig) TableName() string {
	return "group_subject_configs"
}
