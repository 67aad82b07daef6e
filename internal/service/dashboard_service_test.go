package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/mautops/backoffice-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDashboardService_Get 测试首页汇总
func TestDashboardService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tasks := f.taskService()
	dashboard := service.NewDashboardService(f.tasks, f.orders, f.currents)

	currentID, stockID := f.seedCurrentAndStock(t)
	_, err := f.currentService().CreateActivity(ctx, currentID, &service.ActivityInput{Balance: float(75)}, "alice")
	require.NoError(t, err)

	orders := f.orderService()
	var orderIDs []string
	for _, price := range []float64{100, 40, 10} {
		order, err := orders.Create(ctx, &service.OrderInput{
			CurrentID: currentID,
			Items:     []service.ItemInput{{StockID: stockID, Amount: float(1), Price: float(price)}},
		}, "alice")
		require.NoError(t, err)
		orderIDs = append(orderIDs, order.ID)
	}

	past := time.Now().UTC().Add(-48 * time.Hour)
	overdue := []workflow.StepInput{{Name: "pack", ResponsibleUsername: "alice", PlannedFinishDate: &past}}
	_, err = tasks.Create(ctx, &workflow.CreateInput{OrderID: orderIDs[0], AssignedSteps: overdue}, "alice")
	require.NoError(t, err)

	done, err := tasks.Create(ctx, &workflow.CreateInput{OrderID: orderIDs[1], AssignedSteps: steps("pack")}, "alice")
	require.NoError(t, err)
	_, err = tasks.CompleteTask(ctx, done.ID, "alice")
	require.NoError(t, err)

	result, err := dashboard.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.ActiveTaskCount)
	assert.Equal(t, int64(1), result.OverdueTaskCount)
	assert.Equal(t, int64(1), result.OrdersWithoutTaskCount)
	assert.Equal(t, int64(1), result.CompletedThisMonthCount)
	require.Len(t, result.ActiveTasks, 1)

	require.Len(t, result.SalesDaily, 30)
	today := result.SalesDaily[len(result.SalesDaily)-1]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Period)
	assert.InDelta(t, 150, today.TotalFee, 1e-9)

	require.Len(t, result.SalesMonthly, 12)
	assert.InDelta(t, 150, result.SalesMonthly[11].TotalFee, 1e-9)

	require.Len(t, result.CurrentFinalBalances, 1)
	assert.InDelta(t, 75, result.CurrentFinalBalances[0].Balance, 1e-9)
}
