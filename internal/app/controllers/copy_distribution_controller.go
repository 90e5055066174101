package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evaldesk/copyflow/internal/app/models/dto"
	"github.com/evaldesk/copyflow/internal/app/services"
	"github.com/evaldesk/copyflow/internal/middleware"
)

// CopyDistributionController handles copy bundle distribution endpoints
type CopyDistributionController struct {
	copyDistributionService *services.CopyDistributionService
}

// NewCopyDistributionController creates a new CopyDistributionController
func NewCopyDistributionController(copyDistributionService *services.CopyDistributionService) *CopyDistributionController {
	return &CopyDistributionController{
		copyDistributionService: copyDistributionService,
	}
}

// AddBundles registers a copy for distribution
// @Summary Add a copy bundle
// @Description Registers one answer-sheet copy; the copy joins the bundle for its exam date, subject and evaluator, or starts a new one
// @Tags copy-distribution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AddBundleRequest true "Copy information"
// @Success 201 {object} dto.APIResponse{data=dto.SuccessResponse} "CopyBundle added successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data or date format"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Failure 409 {object} dto.ErrorResponse "CopyBundle already exists"
// @Router /exam-controller/copy-distribution/add-bundles [post]
func (c *CopyDistributionController) AddBundles(ctx *gin.Context) {
	var req dto.AddBundleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid bundle data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.copyDistributionService.AddBundle(ctx, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "CopyBundle added successfully"},
		Timestamp: time.Now(),
	})
}

// AllBundles lists every bundle with evaluator details
// @Summary List all bundles
// @Description Retrieves all copy bundles with their evaluator details resolved
// @Tags copy-distribution
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.BundleResponse}
// @Router /exam-controller/copy-distribution/all-bundles [get]
func (c *CopyDistributionController) AllBundles(ctx *gin.Context) {
	bundles, err := c.copyDistributionService.ListAll(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      bundles,
		Timestamp: time.Now(),
	})
}

// BundleByID retrieves one bundle with due annotations
// @Summary Get bundle by ID
// @Description Retrieves a bundle; each copy carries its effective status and remaining/overdue label
// @Tags copy-distribution
// @Produce json
// @Security BearerAuth
// @Param bundle_id query string true "Bundle ID"
// @Success 200 {object} dto.APIResponse{data=dto.BundleResponse}
// @Failure 404 {object} dto.ErrorResponse "Bundle not found"
// @Router /exam-controller/copy-distribution/bundle-by-id [get]
func (c *CopyDistributionController) BundleByID(ctx *gin.Context) {
	bundle, err := c.copyDistributionService.GetByID(ctx, ctx.Query("bundle_id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      bundle,
		Timestamp: time.Now(),
	})
}

// ProgressBundle advances a copy one lifecycle step
// @Summary Progress a copy
// @Description Moves AVAILABLE copies to ALLOTTED and INPROGRESS copies to SUBMITTED; ALLOTTED copies must be accepted by the evaluator instead
// @Tags copy-distribution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProgressBundleRequest true "Copy reference"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Bundle progressed successfully"
// @Failure 404 {object} dto.ErrorResponse "Bundle or batch not found"
// @Failure 409 {object} dto.ErrorResponse "Illegal transition"
// @Router /exam-controller/copy-distribution/progress-bundle [patch]
func (c *CopyDistributionController) ProgressBundle(ctx *gin.Context) {
	var req dto.ProgressBundleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid progress data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.copyDistributionService.Progress(ctx, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Bundle progressed successfully"},
		Timestamp: time.Now(),
	})
}

// BatchSubmitUpdate records received submission artifacts for a copy
// @Summary Record submission artifacts
// @Description Stores which artifacts (answer sheets, award copies) were received for a submitted copy
// @Tags copy-distribution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubmissionUpdateRequest true "Artifact flags"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Submission updated successfully"
// @Failure 409 {object} dto.ErrorResponse "Copy not submitted yet"
// @Router /exam-controller/copy-distribution/batch-submit-update [patch]
func (c *CopyDistributionController) BatchSubmitUpdate(ctx *gin.Context) {
	var req dto.SubmissionUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid submission data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.copyDistributionService.RecordSubmission(ctx, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Submission updated successfully"},
		Timestamp: time.Now(),
	})
}

// DeleteBundle removes a bundle that has not entered evaluation
// @Summary Delete a bundle
// @Description Removes a bundle while every copy is still AVAILABLE
// @Tags copy-distribution
// @Produce json
// @Security BearerAuth
// @Param bundle_id query string true "Bundle ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Bundle deleted successfully"
// @Failure 404 {object} dto.ErrorResponse "Bundle not found"
// @Failure 409 {object} dto.ErrorResponse "Bundle has copies already in evaluation"
// @Router /exam-controller/copy-distribution/delete-bundle [delete]
func (c *CopyDistributionController) DeleteBundle(ctx *gin.Context) {
	if err := c.copyDistributionService.Delete(ctx, ctx.Query("bundle_id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Bundle deleted successfully"},
		Timestamp: time.Now(),
	})
}

// TeacherBundles lists the requesting evaluator's bundles
// @Summary List my bundles
// @Description Retrieves the bundles allotted to the authenticated evaluator, with due annotations
// @Tags copy-distribution
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.BundleResponse}
// @Router /teacher/copy-distribution/bundles [get]
func (c *CopyDistributionController) TeacherBundles(ctx *gin.Context) {
	bundles, err := c.copyDistributionService.ListForEvaluator(ctx, ctx.GetString(middleware.ContextSapID))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      bundles,
		Timestamp: time.Now(),
	})
}

// AcceptBundle accepts an allotment on behalf of the authenticated evaluator
// @Summary Accept an allotment
// @Description Moves an ALLOTTED copy to INPROGRESS; only the bundle's evaluator may accept
// @Tags copy-distribution
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProgressBundleRequest true "Copy reference"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Bundle accepted successfully"
// @Failure 403 {object} dto.ErrorResponse "Bundle not allotted to this evaluator"
// @Failure 409 {object} dto.ErrorResponse "Copy not in ALLOTTED state"
// @Router /teacher/copy-distribution/accept-bundle [patch]
func (c *CopyDistributionController) AcceptBundle(ctx *gin.Context) {
	var req dto.ProgressBundleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid accept data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.copyDistributionService.Accept(ctx, req, ctx.GetString(middleware.ContextSapID)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.SuccessResponse{Message: "Bundle accepted successfully"},
		Timestamp: time.Now(),
	})
}
