package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/config"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/store"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

type HandlerManager struct {
	questionHandler     *QuestionHandler
	hierarchyHandler    *HierarchyHandler
	importExportHandler *ImportExportHandler
	dashboardHandler    *DashboardHandler
	workbenchHandler    *WorkbenchHandler
	authMiddleware      *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	workbench *store.Store,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		questionHandler:     NewQuestionHandler(serviceManager.Question(), logger),
		hierarchyHandler:    NewHierarchyHandler(serviceManager.Hierarchy(), logger),
		importExportHandler: NewImportExportHandler(serviceManager.ImportExport(), logger),
		dashboardHandler:    NewDashboardHandler(serviceManager.Dashboard(), logger),
		workbenchHandler:    NewWorkbenchHandler(workbench, logger),
		authMiddleware:      authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())

	editors := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

	{
		// Question routes
		questions := v1.Group("/questions")
		{
			// View questions - all authenticated users
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.GET("/by-human-id/:human_id", hm.questionHandler.GetQuestionByHumanID)

			// Create/modify questions - Teachers and Admins only
			questions.POST("", editors, hm.questionHandler.CreateQuestion)
			questions.POST("/batch", editors, hm.questionHandler.CreateQuestionsBatch)
			questions.PUT("/:id", editors, hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", editors, hm.questionHandler.DeleteQuestion)

			// Bulk operations
			questions.POST("/bulk/delete", editors, hm.questionHandler.BulkDeleteQuestions)
			questions.POST("/bulk/activity", editors, hm.questionHandler.BulkSetActiveQuestions)
			questions.POST("/bulk/tags", editors, hm.questionHandler.BulkTagQuestions)

			// Import/export
			questions.POST("/export", editors, hm.importExportHandler.ExportQuestions)
			questions.POST("/import", editors, hm.importExportHandler.ImportQuestions)
		}

		// Hierarchy routes
		hierarchy := v1.Group("/hierarchy")
		{
			hierarchy.GET("/tree/:type", hm.hierarchyHandler.GetTree)
			hierarchy.GET("/:id", hm.hierarchyHandler.GetItem)
			hierarchy.GET("/:id/children", hm.hierarchyHandler.GetChildren)
			hierarchy.GET("/:id/path", hm.hierarchyHandler.GetPath)

			// Mutations - Teachers and Admins only
			hierarchy.POST("", editors, hm.hierarchyHandler.CreateItem)
			hierarchy.PUT("/:id", editors, hm.hierarchyHandler.UpdateItem)
			hierarchy.DELETE("/:id", editors, hm.hierarchyHandler.DeleteItem)
			hierarchy.DELETE("/:id/cascade", editors, hm.hierarchyHandler.CascadeDeleteItem)
		}

		// Dashboard routes - Teachers and Admins only
		dashboard := v1.Group("/dashboard")
		dashboard.Use(editors)
		{
			dashboard.GET("/stats", hm.dashboardHandler.GetStats)
			dashboard.GET("/recent", hm.dashboardHandler.GetRecentQuestions)
		}

		// Workbench routes - Teachers and Admins only
		workbench := v1.Group("/workbench")
		workbench.Use(editors)
		{
			workbench.GET("", hm.workbenchHandler.GetState)
			workbench.POST("/load", hm.workbenchHandler.Load)
			workbench.POST("/refresh", hm.workbenchHandler.Refresh)
			workbench.PUT("/query", hm.workbenchHandler.SetQuery)
			workbench.PUT("/filters", hm.workbenchHandler.SetFilters)
			workbench.PUT("/sort", hm.workbenchHandler.SetSort)
			workbench.PUT("/page", hm.workbenchHandler.SetPage)

			workbench.POST("/questions", hm.workbenchHandler.CreateQuestion)
			workbench.PUT("/questions/:id", hm.workbenchHandler.UpdateQuestion)
			workbench.DELETE("/questions/:id", hm.workbenchHandler.DeleteQuestion)
			workbench.POST("/questions/bulk/delete", hm.workbenchHandler.BulkDelete)
			workbench.POST("/questions/bulk/activity", hm.workbenchHandler.BulkSetActive)
			workbench.POST("/questions/bulk/tags", hm.workbenchHandler.BulkTag)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "question-bank-service",
		})
	})
}
