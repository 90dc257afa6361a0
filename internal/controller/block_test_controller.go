package controller

import (
	"time"

	"school_test_backend/internal/model"
	"school_test_backend/internal/repository"
	"school_test_backend/internal/service"
	"school_test_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BlockTestController struct {
	Service *service.BlockTestService
}

func NewBlockTestController(svc *service.BlockTestService) *BlockTestController {
	return &BlockTestController{Service: svc}
}

type CreateBlockTestRequest struct {
	BranchID     uint                  `json:"branchId" binding:"required"`
	ClassNumber  int                   `json:"classNumber" binding:"required,min=1,max=11"`
	PeriodMonth  int                   `json:"periodMonth" binding:"required,min=1,max=12"`
	PeriodYear   int                   `json:"periodYear" binding:"required"`
	Date         *time.Time            `json:"date"`
	SubjectPools model.SubjectPoolList `json:"subjectPools" binding:"required"`
}

// @Summary 创建块测试 (老师/教研员)
// @Tags 块测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateBlockTestRequest true "块测试信息"
// @Success 201 {object} util.Response
// @Router /api/block-tests [post]
func (c *BlockTestController) Create(ctx *gin.Context) {
	var req CreateBlockTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	test := &model.BlockTest{
		BranchID:     req.BranchID,
		ClassNumber:  req.ClassNumber,
		PeriodMonth:  req.PeriodMonth,
		PeriodYear:   req.PeriodYear,
		SubjectPools: req.SubjectPools,
	}
	if req.Date != nil {
		test.Date = *req.Date
	}
	if claims != nil {
		test.CreatedBy = claims.UserID
	}

	if err := c.Service.Create(test); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, test)
}

// @Summary 获取块测试列表
// @Tags 块测试
// @Produce json
// @Security BearerAuth
// @Param branchId query int true "分部ID"
// @Param classNumber query int false "班级"
// @Param date query string false "按日期筛选 (2006-01-02)"
// @Param detail query string false "full | basic | summary"
// @Success 200 {object} util.Response
// @Router /api/block-tests [get]
func (c *BlockTestController) List(ctx *gin.Context) {
	filter := repository.BlockTestFilter{
		BranchID:    util.MustParseUint(ctx.Query("branchId")),
		ClassNumber: util.MustParseInt(ctx.Query("classNumber")),
	}
	if raw := ctx.Query("date"); raw != "" {
		date, err := time.Parse(util.DateFormat, raw)
		if err != nil {
			util.BadRequest(ctx, "invalid date, expected "+util.DateFormat)
			return
		}
		filter.Date = &date
	}

	tests, err := c.Service.List(filter, ctx.DefaultQuery("detail", "basic"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// @Summary 获取块测试详情
// @Tags 块测试
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id} [get]
func (c *BlockTestController) Get(ctx *gin.Context) {
	test, err := c.Service.Get(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if err == util.ErrBlockTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

type UpdateBlockTestRequest struct {
	Date         *time.Time            `json:"date"`
	SubjectPools model.SubjectPoolList `json:"subjectPools" binding:"required"`
}

// @Summary 更新块测试题池（已发变体作废）
// @Tags 块测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Param body body UpdateBlockTestRequest true "题池"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id} [put]
func (c *BlockTestController) Update(ctx *gin.Context) {
	var req UpdateBlockTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.Update(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), req.SubjectPools, req.Date)
	if err != nil {
		if err == util.ErrBlockTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, test)
}

// @Summary 删除块测试（级联删除变体和结果）
// @Tags 块测试
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id} [delete]
func (c *BlockTestController) Delete(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.Service.Delete(ctx.Request.Context(), id); err != nil {
		if err == util.ErrBlockTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": id})
}

type ImportConfirmRequest struct {
	BranchID     uint                  `json:"branchId" binding:"required"`
	ClassNumber  int                   `json:"classNumber" binding:"required,min=1,max=11"`
	PeriodMonth  int                   `json:"periodMonth" binding:"required,min=1,max=12"`
	PeriodYear   int                   `json:"periodYear" binding:"required"`
	Date         *time.Time            `json:"date"`
	SubjectPools model.SubjectPoolList `json:"subjectPools" binding:"required"`
}

// @Summary 确认导入题池（同学科同字母整体替换）
// @Tags 块测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ImportConfirmRequest true "导入的题池"
// @Success 200 {object} util.Response
// @Router /api/block-tests/import-confirm [post]
func (c *BlockTestController) ImportConfirm(ctx *gin.Context) {
	var req ImportConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	scope := model.BlockTestScope{
		BranchID:    req.BranchID,
		ClassNumber: req.ClassNumber,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
	}
	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	var createdBy uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		createdBy = claims.UserID
	}

	test, invalidated, err := c.Service.ImportConfirm(ctx.Request.Context(), scope, date, createdBy, req.SubjectPools)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{
		"blockTest":           test,
		"variantsInvalidated": invalidated,
	})
}

type MergeDuplicatesRequest struct {
	BranchID    uint `json:"branchId" binding:"required"`
	ClassNumber int  `json:"classNumber" binding:"required,min=1,max=11"`
	PeriodMonth int  `json:"periodMonth" binding:"required,min=1,max=12"`
	PeriodYear  int  `json:"periodYear" binding:"required"`
}

// @Summary 合并同作用域的重复块测试文档
// @Tags 块测试
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body MergeDuplicatesRequest true "作用域"
// @Success 200 {object} util.Response
// @Router /api/block-tests/merge-duplicates [post]
func (c *BlockTestController) MergeDuplicates(ctx *gin.Context) {
	var req MergeDuplicatesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, merged, err := c.Service.MergeDuplicates(ctx.Request.Context(), model.BlockTestScope{
		BranchID:    req.BranchID,
		ClassNumber: req.ClassNumber,
		PeriodMonth: req.PeriodMonth,
		PeriodYear:  req.PeriodYear,
	})
	if err != nil {
		if err == util.ErrBlockTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"blockTest": test,
		"merged":    merged,
	})
}
