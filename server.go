package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/middlewares"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/reports"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/bahariworks/procurement_backend/workflow"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// httpStatusForError maps the domain error taxonomy to HTTP status codes.
// Guard violations and bad transitions are client errors; lock timeouts and
// deadlocks surface as 409 so callers know to retry.
func httpStatusForError(err error) int {
	var validationErr *utils.ValidationError
	var budgetErr *utils.BudgetExceededError
	var percentErr *utils.PercentageRegressionError
	var transitionErr *utils.InvalidStatusTransitionError
	var quantityErr *utils.QuantityExceededError
	var productionErr *utils.ProductionNotCompleteError
	var processTypeErr *utils.InvalidProcessTypeError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorConcurrentModification):
		return http.StatusConflict
	case errors.As(err, &validationErr),
		errors.As(err, &budgetErr),
		errors.As(err, &percentErr),
		errors.As(err, &transitionErr),
		errors.As(err, &quantityErr),
		errors.As(err, &productionErr),
		errors.As(err, &processTypeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(httpStatusForError(err), gin.H{"error": err.Error()})
}

func registerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "role": user.Role})
	}
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		token, user, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "name": user.Name, "role": user.Role})
	}
}

func createBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAnnualBudget
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		budget, err := models.CreateAnnualBudget(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, budget)
	}
}

func listBudgetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		budgets, err := models.GetAnnualBudgets(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, budgets)
	}
}

type updateBudgetRequest struct {
	TotalBudget string `json:"total_budget" binding:"required"`
}

func updateBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req updateBudgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		total, err := decimalFromString(req.TotalBudget)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid total_budget"})
			return
		}
		budget, err := models.UpdateAnnualBudgetTotal(c.Request.Context(), id, total)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusOK, budget)
	}
}

func deleteBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := models.DeleteAnnualBudget(c.Request.Context(), id); err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.Status(http.StatusNoContent)
	}
}

func budgetTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		txns, err := models.GetBudgetTransactions(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, txns)
	}
}

func budgetExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		buf, err := reports.BudgetUtilizationXLSX(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="budget-utilization.xlsx"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func createAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBudgetAllocation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		allocation, err := models.CreateBudgetAllocation(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusCreated, allocation)
	}
}

func listAllocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		budgetId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		allocations, err := models.GetBudgetAllocations(c.Request.Context(), budgetId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, allocations)
	}
}

type updateAllocationRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func updateAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req updateAllocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		amount, err := decimalFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		allocation, err := models.UpdateBudgetAllocationAmount(c.Request.Context(), id, amount)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusOK, allocation)
	}
}

func deleteAllocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := models.DeleteBudgetAllocation(c.Request.Context(), id); err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.Status(http.StatusNoContent)
	}
}

func createProcurementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProcurement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		procurement, err := workflow.CreateProcurement(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusCreated, procurement)
	}
}

func listProcurementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		procurements, err := models.GetProcurements(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, procurements)
	}
}

func getProcurementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		procurement, err := models.GetProcurement(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, procurement)
	}
}

func cancelProcurementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		procurement, err := workflow.CancelProcurement(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusOK, procurement)
	}
}

func addProductionStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewProductionStatus
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		entry, err := workflow.AddProductionStatus(c.Request.Context(), itemId, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func productionHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		entries, err := models.GetProductionHistory(c.Request.Context(), itemId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func createShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		vendorId, _ := utils.GetVendorIdFromContext(ctx)
		if vendorId == 0 {
			// Admins ship on behalf of a vendor.
			vendorId, _ = strconv.Atoi(c.Query("vendor_id"))
		}
		if vendorId == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id is required"})
			return
		}
		var input models.NewShipment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		shipment, err := workflow.CreateShipment(ctx, vendorId, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, shipment)
	}
}

func listShipmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shipments, err := models.GetShipments(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, shipments)
	}
}

func getShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		shipment, err := models.GetShipment(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, shipment)
	}
}

func updateShipmentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewShipmentStatus
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		shipment, err := workflow.UpdateShipmentStatus(c.Request.Context(), id, &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, shipment)
	}
}

func shipmentStatusLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		logs, err := models.GetShipmentStatusLogs(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

// Manual re-trigger for the inspection generator. Idempotent, so operators
// can call it freely when a delivery-time trigger was lost.
func generateInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		procurementId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		report, err := workflow.GenerateInspectionReport(c.Request.Context(), procurementId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if report == nil {
			c.JSON(http.StatusAccepted, gin.H{"message": "procurement is not fully delivered yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func listInspectionReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reportRows, err := models.GetInspectionReports(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, reportRows)
	}
}

func getInspectionReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		report, err := models.GetInspectionReport(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func completeInspectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var result models.InspectionResult
		if err := c.ShouldBindJSON(&result); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		report, err := workflow.CompleteInspectionReport(c.Request.Context(), id, &result)
		if err != nil {
			abortWithError(c, err)
			return
		}
		invalidateDashboardCache()
		c.JSON(http.StatusOK, report)
	}
}

func createHandoverHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewHandoverCertificate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		certificate, err := models.CreateHandoverCertificate(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, certificate)
	}
}

func listHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceId, err := strconv.Atoi(c.Query("reference_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_id is required"})
			return
		}
		histories, err := models.GetHistories(c.Request.Context(), c.Query("reference_type"), referenceId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

func reconcileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mismatches, err := workflow.RunBudgetReconciliationChecks(
			c.Request.Context(), config.GetDB(), config.GetLogger())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mismatches": mismatches})
	}
}

const dashboardCacheKey = "dashboard:budget-summary"

type dashboardSummary struct {
	Budgets            []*models.AnnualBudget `json:"budgets"`
	ActiveProcurements int64                  `json:"active_procurements"`
	PendingInspections int64                  `json:"pending_inspections"`
	ShipmentsInTransit int64                  `json:"shipments_in_transit"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

func invalidateDashboardCache() {
	_ = config.RemoveRedisKey(dashboardCacheKey)
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var summary dashboardSummary
		if found, err := config.GetRedisObject(dashboardCacheKey, &summary); err == nil && found {
			c.JSON(http.StatusOK, summary)
			return
		}

		ctx := c.Request.Context()
		budgets, err := models.GetAnnualBudgets(ctx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		activeProcurements, err := utils.ResourceCountWhere[models.Procurement](ctx,
			"status IN ?", []models.ProcurementStatus{
				models.ProcurementStatusContracted, models.ProcurementStatusInProgress})
		if err != nil {
			abortWithError(c, err)
			return
		}
		pendingInspections, err := utils.ResourceCountWhere[models.InspectionReport](ctx,
			"status = ?", models.InspectionReportStatusPending)
		if err != nil {
			abortWithError(c, err)
			return
		}
		inTransit, err := utils.ResourceCountWhere[models.Shipment](ctx,
			"status = ?", models.ShipmentStatusShipped)
		if err != nil {
			abortWithError(c, err)
			return
		}

		summary = dashboardSummary{
			Budgets:            budgets,
			ActiveProcurements: activeProcurements,
			PendingInspections: pendingInspections,
			ShipmentsInTransit: inTransit,
			GeneratedAt:        time.Now(),
		}
		_ = config.SetRedisObject(dashboardCacheKey, summary, utils.GetCacheLifespan())
		c.JSON(http.StatusOK, summary)
	}
}

func registerReferenceRoutes(api *gin.RouterGroup) {
	api.POST("/vendors", bindCreate(models.CreateVendor))
	api.GET("/vendors", bindList(models.GetVendors))
	api.POST("/cooperatives", bindCreate(models.CreateCooperative))
	api.GET("/cooperatives", bindList(models.GetCooperatives))
	api.POST("/areas", bindCreate(models.CreateArea))
	api.GET("/areas", bindList(models.GetAreas))
	api.POST("/item-types", bindCreate(models.CreateItemType))
	api.GET("/item-types", bindList(models.GetItemTypes))
	api.POST("/items", bindCreate(models.CreateFishingItem))
	api.GET("/items", bindList(models.GetFishingItems))
	api.POST("/plenary-meetings", bindCreate(models.CreatePlenaryMeeting))
	api.GET("/plenary-meetings", bindList(models.GetPlenaryMeetings))
}

func bindCreate[In any, Out any](create func(context.Context, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input In
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		out, err := create(c.Request.Context(), &input)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

func bindList[Out any](list func(context.Context) ([]*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := list(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	_ = godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before the DB is ready so the startup probe
	// passes; app endpoints return 503 until dependencies connect.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/auth/register", registerHandler())
	r.POST("/auth/login", loginHandler())

	api := r.Group("/api", middlewares.RequireAuth())

	admin := api.Group("", middlewares.RequireRole(string(models.UserRoleAdmin)))
	admin.POST("/budgets", createBudgetHandler())
	admin.PUT("/budgets/:id", updateBudgetHandler())
	admin.DELETE("/budgets/:id", deleteBudgetHandler())
	admin.POST("/allocations", createAllocationHandler())
	admin.PUT("/allocations/:id", updateAllocationHandler())
	admin.DELETE("/allocations/:id", deleteAllocationHandler())
	admin.POST("/procurements", createProcurementHandler())
	admin.POST("/procurements/:id/cancel", cancelProcurementHandler())
	admin.POST("/inspection-reports/:id/complete", completeInspectionHandler())
	admin.POST("/handover-certificates", createHandoverHandler())
	admin.POST("/internal/ops/reconcile", reconcileHandler())
	registerReferenceRoutes(admin)

	api.GET("/budgets", listBudgetsHandler())
	api.GET("/budgets/export", budgetExportHandler())
	api.GET("/budgets/:id/allocations", listAllocationsHandler())
	api.GET("/budgets/:id/transactions", budgetTransactionsHandler())
	api.GET("/procurements", listProcurementsHandler())
	api.GET("/procurements/:id", getProcurementHandler())
	api.POST("/procurements/:id/inspection", generateInspectionHandler())
	api.POST("/procurement-items/:id/production-status", addProductionStatusHandler())
	api.GET("/procurement-items/:id/production-status", productionHistoryHandler())
	api.POST("/shipments", createShipmentHandler())
	api.GET("/shipments", listShipmentsHandler())
	api.GET("/shipments/:id", getShipmentHandler())
	api.POST("/shipments/:id/status", updateShipmentStatusHandler())
	api.GET("/shipments/:id/status-logs", shipmentStatusLogsHandler())
	api.GET("/inspection-reports", listInspectionReportsHandler())
	api.GET("/inspection-reports/:id", getInspectionReportHandler())
	api.GET("/handover-certificates", bindListHandover())
	api.GET("/histories", listHistoriesHandler())
	api.GET("/dashboard", dashboardHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Locked aggregate reads rely on READ COMMITTED semantics.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func bindListHandover() gin.HandlerFunc {
	return func(c *gin.Context) {
		certificates, err := models.GetHandoverCertificates(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, certificates)
	}
}

// customErrorLogger logs only requests that accumulated errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
