package repository

import (
	"school_test_backend/internal/model"

	"gorm.io/gorm"
)

// EnrollmentRepository 学生花名册与分组配置的只读入口，
// 外加配置变更的写路径（变更会触发变体失效）。
type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) FindStudent(id uint) (*model.Student, error) {
	var s model.Student
	if err := r.DB.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *EnrollmentRepository) FindStudents(ids []uint) ([]model.Student, error) {
	var students []model.Student
	err := r.DB.Where("id IN ?", ids).Find(&students).Error
	return students, err
}

// SubjectLetters 汇总一个学生的每学科分组字母。
// 学生级配置（StudentTestConfig）优先，其次是所在分组的
// GroupSubjectConfig；两处都没有的学科不出现在结果里（= 通用题池）。
func (r *EnrollmentRepository) SubjectLetters(studentID uint) (map[uint]string, error) {
	letters := make(map[uint]string)

	var groupIDs []uint
	if err := r.DB.Model(&model.StudentGroup{}).
		Where("student_id = ?", studentID).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, err
	}

	if len(groupIDs) > 0 {
		var configs []model.GroupSubjectConfig
		if err := r.DB.Where("group_id IN ?", groupIDs).Find(&configs).Error; err != nil {
			return nil, err
		}
		for _, c := range configs {
			if c.GroupLetter != "" {
				letters[c.SubjectID] = c.GroupLetter
			}
		}
	}

	cfg, err := r.FindStudentTestConfig(studentID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		for _, sc := range cfg.Subjects {
			if sc.GroupLetter != nil && *sc.GroupLetter != "" {
				letters[sc.SubjectID] = *sc.GroupLetter
			}
		}
	}

	return letters, nil
}

// QuestionCounts 学生级配置里各学科的题量上限（0 = 不限）
func (r *EnrollmentRepository) QuestionCounts(studentID uint) (map[uint]int, error) {
	cfg, err := r.FindStudentTestConfig(studentID)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int)
	if cfg != nil {
		for _, sc := range cfg.Subjects {
			counts[sc.SubjectID] = sc.QuestionCount
		}
	}
	return counts, nil
}

func (r *EnrollmentRepository) FindStudentTestConfig(studentID uint) (*model.StudentTestConfig, error) {
	var cfg model.StudentTestConfig
	err := r.DB.Where("student_id = ?", studentID).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *EnrollmentRepository) SaveStudentTestConfig(cfg *model.StudentTestConfig) error {
	existing, err := r.FindStudentTestConfig(cfg.StudentID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.BranchID = cfg.BranchID
		existing.Subjects = cfg.Subjects
		*cfg = *existing
		return r.DB.Save(existing).Error
	}
	return r.DB.Create(cfg).Error
}

func (r *EnrollmentRepository) UpsertGroupSubjectLetter(groupID, subjectID uint, letter string) error {
	var cfg model.GroupSubjectConfig
	err := r.DB.Where("group_id = ? AND subject_id = ?", groupID, subjectID).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(&model.GroupSubjectConfig{
			GroupID:     groupID,
			SubjectID:   subjectID,
			GroupLetter: letter,
		}).Error
	}
	if err != nil {
		return err
	}
	cfg.GroupLetter = letter
	return r.DB.Save(&cfg).Error
}

// StudentIDsOfGroup 某分组的全部学生，配置变更时用于圈定失效范围
func (r *EnrollmentRepository) StudentIDsOfGroup(groupID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.StudentGroup{}).
		Where("group_id = ?", groupID).
		Pluck("student_id", &ids).Error
	return ids, err
}
