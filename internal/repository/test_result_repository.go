package repository

import (
	"school_test_backend/internal/model"

	"gorm.io/gorm"
)

type TestResultRepository struct {
	DB *gorm.DB
}

func NewTestResultRepository(db *gorm.DB) *TestResultRepository {
	return &TestResultRepository{DB: db}
}

// Replace 同一学生同一测试重扫时覆盖旧结果，不累积
func (r *TestResultRepository) Replace(result *model.TestResult) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("block_test_id = ? AND student_id = ?", result.BlockTestID, result.StudentID).
			Delete(&model.TestResult{}).Error; err != nil {
			return err
		}
		return tx.Create(result).Error
	})
}

func (r *TestResultRepository) Save(result *model.TestResult) error {
	return r.DB.Save(result).Error
}

func (r *TestResultRepository) FindByID(id string) (*model.TestResult, error) {
	var result model.TestResult
	err := r.DB.First(&result, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *TestResultRepository) ListByTest(testID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.Where("block_test_id = ?", testID).
		Order("created_at desc").
		Find(&results).Error
	return results, err
}

func (r *TestResultRepository) ListByStudent(studentID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&results).Error
	return results, err
}
