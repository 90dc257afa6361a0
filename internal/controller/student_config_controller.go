package controller

import (
	"school_test_backend/internal/model"
	"school_test_backend/internal/repository"
	"school_test_backend/internal/service"
	"school_test_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StudentConfigController 学生级与分组级测试配置。
// 这两处的改动都会让受影响学生的已发变体作废。
type StudentConfigController struct {
	Variants   *service.VariantService
	Enrollment *repository.EnrollmentRepository
}

func NewStudentConfigController(variants *service.VariantService, enrollment *repository.EnrollmentRepository) *StudentConfigController {
	return &StudentConfigController{Variants: variants, Enrollment: enrollment}
}

type StudentTestConfigRequest struct {
	BranchID uint                    `json:"branchId" binding:"required"`
	Subjects model.SubjectConfigList `json:"subjects" binding:"required,min=1"`
}

// @Summary 保存学生级测试配置（该学生变体作废）
// @Tags 配置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "学生ID"
// @Param body body StudentTestConfigRequest true "学科配置"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/test-config [put]
func (c *StudentConfigController) SaveStudentConfig(ctx *gin.Context) {
	var req StudentTestConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cfg := &model.StudentTestConfig{
		StudentID: util.MustParseUint(ctx.Param("id")),
		BranchID:  req.BranchID,
		Subjects:  req.Subjects,
	}
	invalidated, err := c.Variants.UpdateStudentTestConfig(ctx.Request.Context(), cfg)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{
		"config":              cfg,
		"variantsInvalidated": invalidated,
	})
}

// @Summary 获取学生级测试配置
// @Tags 配置
// @Produce json
// @Security BearerAuth
// @Param id path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/test-config [get]
func (c *StudentConfigController) GetStudentConfig(ctx *gin.Context) {
	cfg, err := c.Enrollment.FindStudentTestConfig(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if cfg == nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, cfg)
}

type GroupSubjectLetterRequest struct {
	GroupLetter string `json:"groupLetter" binding:"required,len=1"`
}

// @Summary 设置分组的学科字母（组内学生变体作废）
// @Tags 配置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组ID"
// @Param subjectId path int true "学科ID"
// @Param body body GroupSubjectLetterRequest true "分组字母 A-F"
// @Success 200 {object} util.Response
// @Router /api/group-subject-configs/{groupId}/{subjectId} [put]
func (c *StudentConfigController) SaveGroupSubjectLetter(ctx *gin.Context) {
	var req GroupSubjectLetterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	invalidated, err := c.Variants.UpdateGroupSubjectLetter(
		ctx.Request.Context(),
		util.MustParseUint(ctx.Param("groupId")),
		util.MustParseUint(ctx.Param("subjectId")),
		req.GroupLetter,
	)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"variantsInvalidated": invalidated})
}
