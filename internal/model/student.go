package model

// swagger:model Student
type Student struct {
	BaseModel
	FullName    string `gorm:"size:255;not null" json:"fullName"`
	ClassNumber int    `gorm:"index;not null" json:"classNumber"`
	BranchID    uint   `gorm:"index;type:bigint unsigned" json:"branchId"`
}

func (Student) TableName() string {
	return "students"
}
