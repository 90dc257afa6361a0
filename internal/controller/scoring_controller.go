package controller

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"school_test_backend/internal/service"
	"school_test_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ScoringController struct {
	Service *service.ScoringService
	Storage *service.StorageService
}

func NewScoringController(svc *service.ScoringService, storage *service.StorageService) *ScoringController {
	return &ScoringController{Service: svc, Storage: storage}
}

// parsePositions JSON 的键只能是字符串，这里转回卷面位置
func parsePositions(raw map[string]string) (map[int]string, error) {
	answers := make(map[int]string, len(raw))
	for key, letter := range raw {
		pos, err := strconv.Atoi(key)
		if err != nil || pos < 1 {
			return nil, fmt.Errorf("invalid answer position %q", key)
		}
		answers[pos] = letter
	}
	return answers, nil
}

type ScoreScanRequest struct {
	VariantCode      string            `json:"variantCode" binding:"required"`
	Answers          map[string]string `json:"answers" binding:"required"`
	ScannedImagePath string            `json:"scannedImagePath"`
}

// @Summary 判分一张扫描的答题卡（重复扫描覆盖旧结果）
// @Tags 判分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ScoreScanRequest true "变体码与识别出的答案"
// @Success 200 {object} util.Response
// @Router /api/omr/score [post]
func (c *ScoringController) ScoreScan(ctx *gin.Context) {
	var req ScoreScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answers, err := parsePositions(req.Answers)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.ScoreFromScan(ctx.Request.Context(), req.VariantCode, answers, req.ScannedImagePath)
	if err != nil {
		switch err {
		case util.ErrVariantNotFound, util.ErrBlockTestNotFound:
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// @Summary 上传答题卡扫描原图，返回归档路径
// @Tags 判分
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "扫描原图"
// @Success 200 {object} util.Response
// @Router /api/omr/upload [post]
func (c *ScoringController) UploadScan(ctx *gin.Context) {
	header, err := ctx.FormFile("image")
	if err != nil {
		util.BadRequest(ctx, "image file is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("scans/%s/%s%s",
		time.Now().Format("2006-01"),
		uuid.New().String(),
		filepath.Ext(header.Filename))

	contentType := header.Header.Get("Content-Type")
	url, err := c.Storage.Upload(ctx.Request.Context(), filename, file, header.Size, contentType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"path": url})
}

type RescoreRequest struct {
	Edits map[string]string `json:"edits" binding:"required,min=1"`
}

// @Summary 人工改判若干位置后重新计分 (老师/教研员)
// @Tags 判分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "结果ID"
// @Param body body RescoreRequest true "位置到字母的改动"
// @Success 200 {object} util.Response
// @Router /api/results/{id}/answers [put]
func (c *ScoringController) Rescore(ctx *gin.Context) {
	var req RescoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	edits, err := parsePositions(req.Edits)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Rescore(ctx.Param("id"), edits)
	if err != nil {
		switch err {
		case util.ErrResultNotFound, util.ErrVariantNotFound:
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取判分结果详情
// @Tags 判分
// @Produce json
// @Security BearerAuth
// @Param id path string true "结果ID"
// @Success 200 {object} util.Response
// @Router /api/results/{id} [get]
func (c *ScoringController) GetResult(ctx *gin.Context) {
	result, err := c.Service.GetResult(ctx.Param("id"))
	if err != nil {
		if err == util.ErrResultNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取某测试的全部判分结果
// @Tags 判分
// @Produce json
// @Security BearerAuth
// @Param id path int true "块测试ID"
// @Success 200 {object} util.Response
// @Router /api/block-tests/{id}/results [get]
func (c *ScoringController) ListByTest(ctx *gin.Context) {
	results, err := c.Service.ListByTest(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// @Summary 获取某学生的历次判分结果
// @Tags 判分
// @Produce json
// @Security BearerAuth
// @Param id path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/students/{id}/results [get]
func (c *ScoringController) ListByStudent(ctx *gin.Context) {
	results, err := c.Service.ListByStudent(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, results)
}
