package service

import (
	"context"
	"fmt"
	"time"

	"school_test_backend/internal/model"
	"school_test_backend/internal/repository"
	"school_test_backend/internal/util"
	"school_test_backend/pkg/logger"
	"school_test_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlockTestService 块测试文档的录入与维护。
// 导入确认会改动题池，改过的作用域里已发的变体一律作废。
type BlockTestService struct {
	BlockTests *repository.BlockTestRepository
	Variants   *repository.VariantRepository
}

func NewBlockTestService(blockTests *repository.BlockTestRepository, variants *repository.VariantRepository) *BlockTestService {
	return &BlockTestService{BlockTests: blockTests, Variants: variants}
}

// normalizePools 录入边界上的题目规范化：选项字母必须是 A.. 的连续
// 前缀，正确字母必须在选项里，分值缺省为 1。任何一道题不合法整次
// 录入都拒绝。
func normalizePools(pools model.SubjectPoolList) error {
	for pi := range pools {
		if pools[pi].GroupLetter != nil && *pools[pi].GroupLetter != "" && !util.IsGroupLetter(*pools[pi].GroupLetter) {
			return fmt.Errorf("subject %d: invalid group letter %q", pools[pi].SubjectID, *pools[pi].GroupLetter)
		}
		for qi := range pools[pi].Questions {
			if err := pools[pi].Questions[qi].Normalize(); err != nil {
				return fmt.Errorf("subject %d: %w", pools[pi].SubjectID, err)
			}
		}
	}
	return nil
}

func (s *BlockTestService) Create(test *model.BlockTest) error {
	if test.PeriodMonth < 1 || test.PeriodMonth > 12 {
		return fmt.Errorf("invalid period month %d", test.PeriodMonth)
	}
	if err := normalizePools(test.SubjectPools); err != nil {
		return err
	}
	if test.Date.IsZero() {
		test.Date = time.Now()
	}
	return s.BlockTests.Create(test)
}

// ImportConfirm 把导入预览确认后的题池并入作用域。
//
// 作用域里已有文档时并入最早那份：同 (学科, 字母) 的池整体替换，
// 新的 (学科, 字母) 追加；没有文档时新建一份。题池变了，作用域内
// 所有测试已发的变体全部作废。
func (s *BlockTestService) ImportConfirm(ctx context.Context, scope model.BlockTestScope, date time.Time, createdBy uint, pools model.SubjectPoolList) (*model.BlockTest, int64, error) {
	if err := normalizePools(pools); err != nil {
		return nil, 0, err
	}

	docs, err := s.BlockTests.FindByScope(scope)
	if err != nil {
		return nil, 0, err
	}

	var target *model.BlockTest
	if len(docs) == 0 {
		target = &model.BlockTest{
			BranchID:     scope.BranchID,
			ClassNumber:  scope.ClassNumber,
			PeriodMonth:  scope.PeriodMonth,
			PeriodYear:   scope.PeriodYear,
			Date:         date,
			SubjectPools: pools,
			CreatedBy:    createdBy,
		}
		if err := s.BlockTests.Create(target); err != nil {
			return nil, 0, err
		}
	} else {
		target = &docs[0]
		for _, pool := range pools {
			target.SubjectPools = upsertPool(target.SubjectPools, pool)
		}
		if err := s.BlockTests.Save(target); err != nil {
			return nil, 0, err
		}
	}

	// 作废作用域内所有测试的变体，不限于被替换的学科：
	// 题池变化会移动其他学科题目的卷面位置
	invalidated := int64(0)
	for _, doc := range docs {
		n, err := s.Variants.DeleteByTest(ctx, doc.ID, nil)
		if err != nil {
			return nil, invalidated, err
		}
		invalidated += n
	}
	if len(docs) == 0 {
		n, err := s.Variants.DeleteByTest(ctx, target.ID, nil)
		if err != nil {
			return nil, invalidated, err
		}
		invalidated += n
	}
	monitoring.VariantInvalidated.Add(float64(invalidated))

	logger.Log.Info("import confirmed",
		zap.Uint("branchId", scope.BranchID),
		zap.Int("classNumber", scope.ClassNumber),
		zap.Int("pools", len(pools)),
		zap.Int64("variantsInvalidated", invalidated))
	return target, invalidated, nil
}

// upsertPool 同 (学科, 字母) 的池整体替换，否则追加
func upsertPool(existing model.SubjectPoolList, incoming model.SubjectPool) model.SubjectPoolList {
	for i := range existing {
		if existing[i].SubjectID != incoming.SubjectID {
			continue
		}
		if sameLetter(existing[i].GroupLetter, incoming.GroupLetter) {
			existing[i] = incoming
			return existing
		}
	}
	return append(existing, incoming)
}

func sameLetter(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func (s *BlockTestService) Get(id uint) (*model.BlockTest, error) {
	test, err := s.BlockTests.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrBlockTestNotFound
	}
	return test, err
}

func (s *BlockTestService) List(filter repository.BlockTestFilter, detail string) ([]model.BlockTest, error) {
	return s.BlockTests.List(filter, detail)
}

// Update 整体替换一份文档的题池并作废其作用域内的变体
func (s *BlockTestService) Update(ctx context.Context, id uint, pools model.SubjectPoolList, date *time.Time) (*model.BlockTest, error) {
	if err := normalizePools(pools); err != nil {
		return nil, err
	}

	test, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	test.SubjectPools = pools
	if date != nil {
		test.Date = *date
	}
	if err := s.BlockTests.Save(test); err != nil {
		return nil, err
	}

	if err := s.invalidateScope(ctx, test.Scope()); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *BlockTestService) Delete(ctx context.Context, id uint) error {
	test, err := s.Get(id)
	if err != nil {
		return err
	}
	scope := test.Scope()

	if err := s.BlockTests.Delete(id); err != nil {
		return err
	}
	// 剩余兄弟文档的变体也不可信了：被删学科的题目从卷面上消失
	return s.invalidateScope(ctx, scope)
}

func (s *BlockTestService) invalidateScope(ctx context.Context, scope model.BlockTestScope) error {
	docs, err := s.BlockTests.FindByScope(scope)
	if err != nil {
		return err
	}
	total := int64(0)
	for _, doc := range docs {
		n, err := s.Variants.DeleteByTest(ctx, doc.ID, nil)
		if err != nil {
			return err
		}
		total += n
	}
	monitoring.VariantInvalidated.Add(float64(total))
	return nil
}

// MergeDuplicates 把同作用域的兄弟文档合并成最早一份。
// 题池按成员解析同样的规则并入（同学科同字母先到者留，后到的
// 文档里重复的池丢弃），其余文档删除。
func (s *BlockTestService) MergeDuplicates(ctx context.Context, scope model.BlockTestScope) (*model.BlockTest, int, error) {
	docs, err := s.BlockTests.FindByScope(scope)
	if err != nil {
		return nil, 0, err
	}
	if len(docs) == 0 {
		return nil, 0, util.ErrBlockTestNotFound
	}
	if len(docs) == 1 {
		return &docs[0], 0, nil
	}

	target := &docs[0]
	for _, doc := range docs[1:] {
		for _, pool := range doc.SubjectPools {
			if !hasPool(target.SubjectPools, pool) {
				target.SubjectPools = append(target.SubjectPools, pool)
			}
		}
	}
	if err := s.BlockTests.Save(target); err != nil {
		return nil, 0, err
	}

	merged := 0
	for _, doc := range docs[1:] {
		if err := s.BlockTests.Delete(doc.ID); err != nil {
			return nil, merged, err
		}
		merged++
	}

	if err := s.invalidateScope(ctx, scope); err != nil {
		return nil, merged, err
	}
	return target, merged, nil
}

func hasPool(pools model.SubjectPoolList, pool model.SubjectPool) bool {
	for i := range pools {
		if pools[i].SubjectID == pool.SubjectID && sameLetter(pools[i].GroupLetter, pool.GroupLetter) {
			return true
		}
	}
	return false
}
