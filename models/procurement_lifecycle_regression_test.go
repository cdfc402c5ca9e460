package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/bahariworks/procurement_backend/workflow"
	"github.com/shopspring/decimal"
)

// End-to-end regression over the whole contract lifecycle: budget guards,
// quantity reconciliation, the shipment transition rule, the production
// monotonicity rule and the inspection trigger, all against real MySQL.
func TestProcurementLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "procurement_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	// History rows and ledger transactions record the acting user.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))

	// Reference data.
	vendor, err := models.CreateVendor(ctx, &models.NewVendor{Name: "Samudra Jaya"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	meeting, err := models.CreatePlenaryMeeting(ctx, &models.NewPlenaryMeeting{
		Number:      "PLENO/2026/01",
		MeetingDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreatePlenaryMeeting: %v", err)
	}
	boatType, err := models.CreateItemType(ctx, &models.NewItemType{Name: "Boats"})
	if err != nil {
		t.Fatalf("CreateItemType: %v", err)
	}
	gearType, err := models.CreateItemType(ctx, &models.NewItemType{Name: "Gear"})
	if err != nil {
		t.Fatalf("CreateItemType(gear): %v", err)
	}
	boat, err := models.CreateFishingItem(ctx, &models.NewFishingItem{
		Name:        "Fiberglass Boat 5GT",
		ItemTypeId:  boatType.ID,
		ProcessType: models.ProcessTypeProduction,
		Unit:        "unit",
	})
	if err != nil {
		t.Fatalf("CreateFishingItem(boat): %v", err)
	}
	net, err := models.CreateFishingItem(ctx, &models.NewFishingItem{
		Name:        "Gillnet 100m",
		ItemTypeId:  boatType.ID,
		ProcessType: models.ProcessTypePurchase,
		Unit:        "roll",
	})
	if err != nil {
		t.Fatalf("CreateFishingItem(net): %v", err)
	}

	// Budget ledger: total 100M, Boats ceiling 60M.
	budget, err := models.CreateAnnualBudget(ctx, &models.NewAnnualBudget{
		Year:        2026,
		TotalBudget: decimal.NewFromInt(100_000_000),
	})
	if err != nil {
		t.Fatalf("CreateAnnualBudget: %v", err)
	}
	allocation, err := models.CreateBudgetAllocation(ctx, &models.NewBudgetAllocation{
		BudgetId:   budget.ID,
		ItemTypeId: boatType.ID,
		Amount:     decimal.NewFromInt(60_000_000),
	})
	if err != nil {
		t.Fatalf("CreateBudgetAllocation: %v", err)
	}

	// Allocating creates a ledger row but never touches remaining_budget.
	budget = mustGetBudget(t, ctx, budget.ID)
	if !budget.AllocatedBudget.Equal(decimal.NewFromInt(60_000_000)) {
		t.Fatalf("allocated = %s, want 60M", budget.AllocatedBudget)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(100_000_000)) {
		t.Fatalf("remaining = %s, want 100M", budget.RemainingBudget)
	}

	// Over-allocating past the total is rejected.
	_, err = models.CreateBudgetAllocation(ctx, &models.NewBudgetAllocation{
		BudgetId:   budget.ID,
		ItemTypeId: gearType.ID,
		Amount:     decimal.NewFromInt(50_000_000),
	})
	var budgetErr *utils.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("over-allocation: expected BudgetExceededError, got %v", err)
	}

	// Contract: 2 boats at 15M + 10 nets at 1M = 40M spending.
	procurement, err := workflow.CreateProcurement(ctx, &models.NewProcurement{
		Number:           "BA/PROC/2026/001",
		VendorId:         vendor.ID,
		PlenaryMeetingId: meeting.ID,
		BudgetId:         budget.ID,
		ContractDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.NewProcurementItem{
			{ItemId: boat.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(15_000_000)},
			{ItemId: net.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(1_000_000)},
		},
	})
	if err != nil {
		t.Fatalf("CreateProcurement: %v", err)
	}

	budget = mustGetBudget(t, ctx, budget.ID)
	if !budget.UsedBudget.Equal(decimal.NewFromInt(40_000_000)) {
		t.Fatalf("used = %s, want 40M", budget.UsedBudget)
	}
	if !budget.RemainingBudget.Equal(decimal.NewFromInt(60_000_000)) {
		t.Fatalf("remaining = %s, want 60M", budget.RemainingBudget)
	}

	// A second contract of 30M would pass the budget but break the Boats
	// ceiling (60M - 40M = 20M left). The whole posting must roll back.
	_, err = workflow.CreateProcurement(ctx, &models.NewProcurement{
		Number:           "BA/PROC/2026/002",
		VendorId:         vendor.ID,
		PlenaryMeetingId: meeting.ID,
		BudgetId:         budget.ID,
		ContractDate:     time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Items: []models.NewProcurementItem{
			{ItemId: boat.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(15_000_000)},
		},
	})
	if !errors.As(err, &budgetErr) {
		t.Fatalf("ceiling breach: expected BudgetExceededError, got %v", err)
	}
	budget = mustGetBudget(t, ctx, budget.ID)
	if !budget.UsedBudget.Equal(decimal.NewFromInt(40_000_000)) {
		t.Fatalf("used moved on a rejected posting: %s", budget.UsedBudget)
	}

	// Resolve the contract lines.
	procurement, err = models.GetProcurement(ctx, procurement.ID)
	if err != nil {
		t.Fatalf("GetProcurement: %v", err)
	}
	var boatLine, netLine *models.ProcurementItem
	for i := range procurement.Items {
		switch procurement.Items[i].ItemId {
		case boat.ID:
			boatLine = &procurement.Items[i]
		case net.ID:
			netLine = &procurement.Items[i]
		}
	}
	if boatLine == nil || netLine == nil {
		t.Fatalf("missing contract lines: %+v", procurement.Items)
	}

	// Production-type items cannot ship before production completes.
	_, err = workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/001",
		Items:  []models.NewShipmentItem{{ProcurementItemId: boatLine.ID, Quantity: 1}},
	})
	var notCompleteErr *utils.ProductionNotCompleteError
	if !errors.As(err, &notCompleteErr) {
		t.Fatalf("early shipment: expected ProductionNotCompleteError, got %v", err)
	}

	// Production progress is monotonic.
	if _, err := workflow.AddProductionStatus(ctx, boatLine.ID, &models.NewProductionStatus{
		Status: models.ProcessStatusProduction, Percentage: 30,
	}); err != nil {
		t.Fatalf("AddProductionStatus(30): %v", err)
	}
	if _, err := workflow.AddProductionStatus(ctx, boatLine.ID, &models.NewProductionStatus{
		Status: models.ProcessStatusProduction, Percentage: 60,
	}); err != nil {
		t.Fatalf("AddProductionStatus(60): %v", err)
	}
	_, err = workflow.AddProductionStatus(ctx, boatLine.ID, &models.NewProductionStatus{
		Status: models.ProcessStatusProduction, Percentage: 50,
	})
	var regressionErr *utils.PercentageRegressionError
	if !errors.As(err, &regressionErr) {
		t.Fatalf("regression: expected PercentageRegressionError, got %v", err)
	}

	// Purchase-type items never enter the production flow.
	_, err = workflow.AddProductionStatus(ctx, netLine.ID, &models.NewProductionStatus{
		Status: models.ProcessStatusProduction, Percentage: 10,
	})
	var processTypeErr *utils.InvalidProcessTypeError
	if !errors.As(err, &processTypeErr) {
		t.Fatalf("purchase item in production: expected InvalidProcessTypeError, got %v", err)
	}

	if _, err := workflow.AddProductionStatus(ctx, boatLine.ID, &models.NewProductionStatus{
		Status: models.ProcessStatusCompleted, Percentage: 100,
	}); err != nil {
		t.Fatalf("AddProductionStatus(completed): %v", err)
	}

	// Quantity reconciliation: 1 boat + all nets on the first truck.
	shipment1, err := workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/002",
		Items: []models.NewShipmentItem{
			{ProcurementItemId: boatLine.ID, Quantity: 1},
			{ProcurementItemId: netLine.ID, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("CreateShipment(1): %v", err)
	}

	// Only 1 boat left; asking for 2 is rejected with the remaining headroom.
	_, err = workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/003",
		Items:  []models.NewShipmentItem{{ProcurementItemId: boatLine.ID, Quantity: 2}},
	})
	var quantityErr *utils.QuantityExceededError
	if !errors.As(err, &quantityErr) {
		t.Fatalf("over-shipment: expected QuantityExceededError, got %v", err)
	}
	if quantityErr.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", quantityErr.Remaining)
	}

	shipment2, err := workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/004",
		Items:  []models.NewShipmentItem{{ProcurementItemId: boatLine.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateShipment(2): %v", err)
	}

	// Nothing left; cancelling a shipment releases its quantities.
	if _, err := workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/005",
		Items:  []models.NewShipmentItem{{ProcurementItemId: boatLine.ID, Quantity: 1}},
	}); !errors.As(err, &quantityErr) {
		t.Fatalf("exhausted quantity: expected QuantityExceededError, got %v", err)
	}
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment2.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusCancelled,
	}); err != nil {
		t.Fatalf("cancel shipment2: %v", err)
	}
	shipment3, err := workflow.CreateShipment(ctx, vendor.ID, &models.NewShipment{
		Number: "SHP/006",
		Items:  []models.NewShipmentItem{{ProcurementItemId: boatLine.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateShipment after cancel: %v", err)
	}

	// Transition rule: forward only, backwards rejected, Shipped pings allowed.
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment1.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusShipped,
	}); err != nil {
		t.Fatalf("Pending -> Shipped: %v", err)
	}
	_, err = workflow.UpdateShipmentStatus(ctx, shipment1.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusPrepared,
	})
	var transitionErr *utils.InvalidStatusTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("Shipped -> Prepared: expected InvalidStatusTransitionError, got %v", err)
	}
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment1.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusShipped, Notes: "passed weigh station",
	}); err != nil {
		t.Fatalf("Shipped ping: %v", err)
	}
	logs, err := models.GetShipmentStatusLogs(ctx, shipment1.ID)
	if err != nil {
		t.Fatalf("GetShipmentStatusLogs: %v", err)
	}
	if len(logs) != 3 { // created + shipped + ping
		t.Fatalf("status log rows = %d, want 3", len(logs))
	}

	// Deliver everything; the last delivery trips the inspection generator.
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment1.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusDelivered,
	}); err != nil {
		t.Fatalf("deliver shipment1: %v", err)
	}
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment3.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusShipped,
	}); err != nil {
		t.Fatalf("ship shipment3: %v", err)
	}
	if _, err := workflow.UpdateShipmentStatus(ctx, shipment3.ID, &models.NewShipmentStatus{
		Status: models.ShipmentStatusDelivered,
	}); err != nil {
		t.Fatalf("deliver shipment3: %v", err)
	}

	report, err := workflow.GenerateInspectionReport(ctx, procurement.ID)
	if err != nil {
		t.Fatalf("GenerateInspectionReport: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report for a fully delivered procurement")
	}
	// Re-triggering returns the same report, never a second one.
	again, err := workflow.GenerateInspectionReport(ctx, procurement.ID)
	if err != nil {
		t.Fatalf("GenerateInspectionReport(again): %v", err)
	}
	if again == nil || again.ID != report.ID || again.Number != report.Number {
		t.Fatalf("idempotency broken: first %+v, again %+v", report, again)
	}
	db := config.GetDB()
	var reportCount int64
	if err := db.WithContext(ctx).Model(&models.InspectionReport{}).
		Where("procurement_id = ?", procurement.ID).Count(&reportCount).Error; err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if reportCount != 1 {
		t.Fatalf("report rows = %d, want 1", reportCount)
	}

	// Inspector signs off; the contract closes.
	completed, err := workflow.CompleteInspectionReport(ctx, report.ID, &models.InspectionResult{
		InspectedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []models.InspectionResultItem{
			{ProcurementItemId: boatLine.ID, ActualQuantity: 2, Condition: "Good"},
			{ProcurementItemId: netLine.ID, ActualQuantity: 10, Condition: "Good"},
		},
	})
	if err != nil {
		t.Fatalf("CompleteInspectionReport: %v", err)
	}
	if completed.Status != models.InspectionReportStatusCompleted {
		t.Fatalf("report status = %s", completed.Status)
	}
	procurement, err = models.GetProcurement(ctx, procurement.ID)
	if err != nil {
		t.Fatalf("GetProcurement(final): %v", err)
	}
	if procurement.Status != models.ProcurementStatusCompleted {
		t.Fatalf("procurement status = %s, want Completed", procurement.Status)
	}

	// The cached aggregates must match the transaction log exactly.
	mismatches, err := workflow.RunBudgetReconciliationChecks(ctx, db, config.GetLogger())
	if err != nil {
		t.Fatalf("RunBudgetReconciliationChecks: %v", err)
	}
	if mismatches != 0 {
		t.Fatalf("reconciliation found %d mismatches", mismatches)
	}

	// Allocation deletion is refused while spending exists against it.
	if err := models.DeleteBudgetAllocation(ctx, allocation.ID); err == nil {
		t.Fatal("expected deletion of a spent allocation to be refused")
	}
}

func mustGetBudget(t *testing.T, ctx context.Context, id int) *models.AnnualBudget {
	t.Helper()
	budget, err := models.GetAnnualBudget(ctx, id)
	if err != nil {
		t.Fatalf("GetAnnualBudget: %v", err)
	}
	return budget
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procurement-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("procurement-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=procurement_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
