package model

// swagger:model Subject
type Subject struct {
	BaseModel
	NameUz string `gorm:"size:255;not null" json:"nameUz"`
	NameRu string `gorm:"size:255" json:"nameRu"`
}

func (Subject) TableName() string {
	return "subjects"
}
