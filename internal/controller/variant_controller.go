package controller

import (
	"school_test_backend/internal/service"
	"school_test_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type VariantController struct {
	Service *service.VariantService
}

func NewVariantController(svc *service.VariantService) *VariantController {
	return &VariantController{Service: svc}
}

type GenerateVariantsRequest struct {
	StudentIDs []uint `json:"studentIds" binding:"required,min=1"`
}

// @Summary 为一批学生生成变体 (老师/教研员)
// @Tags 变体
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Param body body GenerateVariantsRequest true "学生ID列表"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id}/generate-variants [post]
func (c *VariantController) Generate(ctx *gin.Context) {
	var req GenerateVariantsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	testID := util.MustParseUint(ctx.Param("id"))
	result, err := c.Service.Materialize(ctx.Request.Context(), testID, req.StudentIDs)
	if err != nil {
		switch err {
		case util.ErrBlockTestNotFound:
			util.NotFound(ctx)
		case util.ErrEmptyStudentList:
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取某测试的全部变体
// @Tags 变体
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id}/variants [get]
func (c *VariantController) ListByTest(ctx *gin.Context) {
	variants, err := c.Service.ListByTest(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, variants)
}

// @Summary 按变体码获取变体（扫描流程热路径）
// @Tags 变体
// @Produce json
// @Security BearerAuth
// @Param code path string true "变体码"
// @Success 200 {object} util.Response
// @Router /api/variants/by-code/{code} [get]
func (c *VariantController) GetByCode(ctx *gin.Context) {
	variant, err := c.Service.GetByCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		if err == util.ErrVariantNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, variant)
}

// @Summary 获取学生在某测试下的变体
// @Tags 变体
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id}/variants/{studentId} [get]
func (c *VariantController) GetByStudent(ctx *gin.Context) {
	variant, err := c.Service.GetByStudentAndTest(
		util.MustParseUint(ctx.Param("studentId")),
		util.MustParseUint(ctx.Param("id")),
	)
	if err != nil {
		if err == util.ErrVariantNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, variant)
}

type InvalidateVariantsRequest struct {
	StudentIDs []uint `json:"studentIds"` // 为空表示整个测试
}

// @Summary 作废变体 (老师/教研员)
// @Tags 变体
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Param body body InvalidateVariantsRequest false "学生范围"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id}/variants [delete]
func (c *VariantController) Invalidate(ctx *gin.Context) {
	var req InvalidateVariantsRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	deleted, err := c.Service.Invalidate(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), req.StudentIDs)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"invalidated": deleted})
}
