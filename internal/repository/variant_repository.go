package repository

import (
	"context"
	"encoding/json"
	"school_test_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// VariantRepository 变体持久层。按码查询是扫描流程的热路径，
// 走 Redis 缓存；任何写操作都会使相关缓存失效。
type VariantRepository struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration
}

func NewVariantRepository(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *VariantRepository {
	return &VariantRepository{DB: db, Redis: rdb, CacheTTL: cacheTTL}
}

func codeCacheKey(code string) string {
	return "variant:code:" + code
}

// Replace 以学生为单位原子替换变体：同一事务里先删旧行再插新行。
// 批量生成中断时，已提交的学生保留新变体，未处理的保留旧变体，
// 不会出现半旧半新的单个变体。
func (r *VariantRepository) Replace(ctx context.Context, variant *model.StudentVariant) error {
	var oldCodes []string
	if err := r.DB.WithContext(ctx).Model(&model.StudentVariant{}).
		Where("test_id = ? AND student_id = ?", variant.TestID, variant.StudentID).
		Pluck("variant_code", &oldCodes).Error; err != nil {
		return err
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("test_id = ? AND student_id = ?", variant.TestID, variant.StudentID).
			Delete(&model.StudentVariant{}).Error; err != nil {
			return err
		}
		return tx.Create(variant).Error
	})
	if err != nil {
		return err
	}

	r.dropCodeCache(ctx, oldCodes)
	return nil
}

func (r *VariantRepository) ListByTest(testID uint) ([]model.StudentVariant, error) {
	var variants []model.StudentVariant
	err := r.DB.Where("test_id = ?", testID).
		Order("created_at desc").
		Find(&variants).Error
	return variants, err
}

func (r *VariantRepository) FindByID(id string) (*model.StudentVariant, error) {
	var v model.StudentVariant
	err := r.DB.First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VariantRepository) FindByStudentAndTest(studentID, testID uint) (*model.StudentVariant, error) {
	var v model.StudentVariant
	err := r.DB.Where("student_id = ? AND test_id = ?", studentID, testID).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByCode 按变体码查询，优先命中 Redis
func (r *VariantRepository) FindByCode(ctx context.Context, code string) (*model.StudentVariant, error) {
	if r.Redis != nil {
		if data, err := r.Redis.Get(ctx, codeCacheKey(code)).Bytes(); err == nil {
			var cached model.StudentVariant
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var v model.StudentVariant
	if err := r.DB.Where("variant_code = ?", code).First(&v).Error; err != nil {
		return nil, err
	}

	if r.Redis != nil {
		if data, err := json.Marshal(&v); err == nil {
			r.Redis.Set(ctx, codeCacheKey(code), data, r.CacheTTL)
		}
	}
	return &v, nil
}

// IssuedCodes 某测试已发放的变体码集合，生成时用于冲突检测
func (r *VariantRepository) IssuedCodes(testID uint) (map[string]bool, error) {
	var codes []string
	if err := r.DB.Model(&model.StudentVariant{}).
		Where("test_id = ?", testID).
		Pluck("variant_code", &codes).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set, nil
}

// DeleteByTest 删除某测试的变体；studentIDs 非空时只删这些学生的。
// 返回删掉的行数。
func (r *VariantRepository) DeleteByTest(ctx context.Context, testID uint, studentIDs []uint) (int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.StudentVariant{}).Where("test_id = ?", testID)
	if len(studentIDs) > 0 {
		query = query.Where("student_id IN ?", studentIDs)
	}

	var codes []string
	if err := query.Pluck("variant_code", &codes).Error; err != nil {
		return 0, err
	}

	del := r.DB.WithContext(ctx).Unscoped().Where("test_id = ?", testID)
	if len(studentIDs) > 0 {
		del = del.Where("student_id IN ?", studentIDs)
	}
	result := del.Delete(&model.StudentVariant{})
	if result.Error != nil {
		return 0, result.Error
	}

	r.dropCodeCache(ctx, codes)
	return result.RowsAffected, nil
}

// DeleteByStudentsAndTests 删除若干学生在给定测试集合下的变体。
// 配置变更的失效范围由调用方圈定：只传进行中周期的测试，
// 过去周期已打印的卷子保持可判分。
func (r *VariantRepository) DeleteByStudentsAndTests(ctx context.Context, studentIDs []uint, testIDs []uint) (int64, error) {
	if len(studentIDs) == 0 || len(testIDs) == 0 {
		return 0, nil
	}

	var codes []string
	if err := r.DB.WithContext(ctx).Model(&model.StudentVariant{}).
		Where("student_id IN ? AND test_id IN ?", studentIDs, testIDs).
		Pluck("variant_code", &codes).Error; err != nil {
		return 0, err
	}

	result := r.DB.WithContext(ctx).Unscoped().
		Where("student_id IN ? AND test_id IN ?", studentIDs, testIDs).
		Delete(&model.StudentVariant{})
	if result.Error != nil {
		return 0, result.Error
	}

	r.dropCodeCache(ctx, codes)
	return result.RowsAffected, nil
}

func (r *VariantRepository) dropCodeCache(ctx context.Context, codes []string) {
	if r.Redis == nil || len(codes) == 0 {
		return
	}
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = codeCacheKey(c)
	}
	// 缓存清理失败不影响主流程，条目会随 TTL 过期
	r.Redis.Del(ctx, keys...)
}
