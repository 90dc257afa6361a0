package repository

import (
	"school_test_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type BlockTestRepository struct {
	DB *gorm.DB
}

func NewBlockTestRepository(db *gorm.DB) *BlockTestRepository {
	return &BlockTestRepository{DB: db}
}

func (r *BlockTestRepository) Create(test *model.BlockTest) error {
	return r.DB.Create(test).Error
}

func (r *BlockTestRepository) Save(test *model.BlockTest) error {
	return r.DB.Save(test).Error
}

func (r *BlockTestRepository) FindByID(id uint) (*model.BlockTest, error) {
	var test model.BlockTest
	err := r.DB.First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindByScope 返回同一作用域（分部+班级+周期）下的所有兄弟文档，
// 按创建时间升序——成员解析时的合并顺序即学科的作者录入顺序。
func (r *BlockTestRepository) FindByScope(scope model.BlockTestScope) ([]model.BlockTest, error) {
	var tests []model.BlockTest
	err := r.DB.
		Where("branch_id = ? AND class_number = ? AND period_month = ? AND period_year = ?",
			scope.BranchID, scope.ClassNumber, scope.PeriodMonth, scope.PeriodYear).
		Order("created_at asc").
		Find(&tests).Error
	return tests, err
}

// FindForClasses 返回若干分部、若干班级的全部块测试，
// 配置变更时用于圈定失效候选，周期过滤在服务层做
func (r *BlockTestRepository) FindForClasses(branchIDs []uint, classNumbers []int) ([]model.BlockTest, error) {
	if len(branchIDs) == 0 || len(classNumbers) == 0 {
		return nil, nil
	}
	var tests []model.BlockTest
	err := r.DB.
		Where("branch_id IN ? AND class_number IN ?", branchIDs, classNumbers).
		Find(&tests).Error
	return tests, err
}

type BlockTestFilter struct {
	BranchID    uint
	ClassNumber int
	Date        *time.Time
}

// List 列出块测试。detail 控制返回的字段量："full" 带题目，
// "basic" 带学科但不带题目（题目在内存里清空），其余只返回概要。
func (r *BlockTestRepository) List(filter BlockTestFilter, detail string) ([]model.BlockTest, error) {
	query := r.DB.Model(&model.BlockTest{}).Where("branch_id = ?", filter.BranchID)

	if filter.ClassNumber > 0 {
		query = query.Where("class_number = ?", filter.ClassNumber)
	}
	if filter.Date != nil {
		start := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		end := start.Add(24 * time.Hour)
		query = query.Where("date >= ? AND date < ?", start, end)
	}

	var tests []model.BlockTest
	if err := query.Order("date desc").Find(&tests).Error; err != nil {
		return nil, err
	}

	switch detail {
	case "full":
		// 原样返回
	case "basic":
		for i := range tests {
			for j := range tests[i].SubjectPools {
				tests[i].SubjectPools[j].Questions = nil
			}
		}
	default:
		for i := range tests {
			tests[i].SubjectPools = nil
		}
	}
	return tests, nil
}

// Delete 删除块测试并级联清掉它的变体和判分结果
func (r *BlockTestRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.StudentVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("block_test_id = ?", id).Delete(&model.TestResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.BlockTest{}, id).Error
	})
}
