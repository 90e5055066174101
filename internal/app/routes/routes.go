package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/evaldesk/copyflow/internal/app/controllers"
	"github.com/evaldesk/copyflow/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	copyDistributionController *controllers.CopyDistributionController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	// --- Exam controller routes ---
	examController := authenticated.Group("/exam-controller/copy-distribution")
	examController.Use(authMiddleware.RoleRequired(middleware.RoleExamController))
	{
		examController.POST("/add-bundles", copyDistributionController.AddBundles)
		examController.GET("/all-bundles", copyDistributionController.AllBundles)
		examController.GET("/bundle-by-id", copyDistributionController.BundleByID)
		examController.PATCH("/progress-bundle", copyDistributionController.ProgressBundle)
		examController.PATCH("/batch-submit-update", copyDistributionController.BatchSubmitUpdate)
		examController.DELETE("/delete-bundle", copyDistributionController.DeleteBundle)
	}

	// --- Teacher routes ---
	teacher := authenticated.Group("/teacher/copy-distribution")
	teacher.Use(authMiddleware.RoleRequired(middleware.RoleTeacher))
	{
		teacher.GET("/bundles", copyDistributionController.TeacherBundles)
		teacher.PATCH("/accept-bundle", copyDistributionController.AcceptBundle)
	}
}
