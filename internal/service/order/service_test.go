package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
	"github.com/vladislavdragonenkov/salesorders/internal/service/order"
	"github.com/vladislavdragonenkov/salesorders/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []domain.OrderEventType
}

func (p *recordingPublisher) PublishOrderEvent(eventType domain.OrderEventType, _ domain.Order) error {
	p.events = append(p.events, eventType)
	return nil
}

func newTestService(opts ...order.Option) (*order.Service, *recordingPublisher) {
	publisher := &recordingPublisher{}
	opts = append([]order.Option{
		order.WithEventPublisher(publisher),
		order.WithClock(func() time.Time { return testNow }),
	}, opts...)
	return order.NewService(memory.NewOrderRepository(), opts...), publisher
}

func createRequest(customer string, date time.Time) order.CreateOrderRequest {
	return order.CreateOrderRequest{
		Date:     date,
		Customer: customer,
		Details: []order.DetailInput{
			{Product: "Widget", Quantity: 5, UnitPrice: decimal.RequireFromString("100.00")},
			{Product: "Gadget", Quantity: 3, UnitPrice: decimal.RequireFromString("150.00")},
		},
	}
}

func TestService_CreateComputesTotalAndStartsPending(t *testing.T) {
	svc, publisher := newTestService()

	created, err := svc.Create(context.Background(), createRequest("Acme Corporation", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.OrderStatusPending, created.Status)
	assert.True(t, created.Total.Equal(decimal.RequireFromString("950.00")),
		"expected total 950.00, got %s", created.Total)
	assert.Equal(t, []domain.OrderEventType{domain.OrderEventCreated}, publisher.events)
}

func TestService_Create_RejectsDuplicateSameDay(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	day := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, createRequest("Acme Corporation", day))
	require.NoError(t, err)

	// Другое время того же дня — всё равно дубликат.
	_, err = svc.Create(ctx, createRequest("Acme Corporation", day.Add(8*time.Hour)))
	require.Error(t, err)
	fault, ok := domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, domain.FaultConflict, fault.Kind)
	assert.Equal(t, 409, fault.Code)

	// Другой день и другой клиент конфликта не дают.
	_, err = svc.Create(ctx, createRequest("Acme Corporation", day.AddDate(0, 0, 1)))
	assert.NoError(t, err)
	_, err = svc.Create(ctx, createRequest("Globex", day))
	assert.NoError(t, err)
}

func TestService_Create_ConcurrentSameDaySingleWinner(t *testing.T) {
	svc, _ := newTestService()
	day := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)

	const writers = 8
	var (
		start     = make(chan struct{})
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(hour int) {
			defer wg.Done()
			<-start

			// Разное время одного дня: проверка ExistsOnDate может пройти у
			// нескольких конкурентов, но хранилище пропускает только одного.
			_, err := svc.Create(context.Background(), createRequest("Acme Corporation", day.Add(time.Duration(hour)*time.Hour)))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if fault, ok := domain.AsFault(err); ok && fault.Code == 409 {
				conflicts++
				return
			}
			t.Errorf("unexpected create error: %v", err)
		}(i)
	}

	close(start)
	wg.Wait()

	require.Equal(t, 1, successes, "exactly one concurrent create must win")
	require.Equal(t, writers-1, conflicts)

	result, err := svc.List(context.Background(), order.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount, "only the winner must be stored")
}

func TestService_Create_Validation(t *testing.T) {
	svc, publisher := newTestService()

	cases := []struct {
		name   string
		mutate func(*order.CreateOrderRequest)
	}{
		{"customer too short", func(r *order.CreateOrderRequest) { r.Customer = "AB" }},
		{"customer blank", func(r *order.CreateOrderRequest) { r.Customer = "   " }},
		{"zero date", func(r *order.CreateOrderRequest) { r.Date = time.Time{} }},
		{"future date", func(r *order.CreateOrderRequest) { r.Date = testNow.Add(48 * time.Hour) }},
		{"no details", func(r *order.CreateOrderRequest) { r.Details = nil }},
		{"product too short", func(r *order.CreateOrderRequest) { r.Details[0].Product = "X" }},
		{"zero quantity", func(r *order.CreateOrderRequest) { r.Details[0].Quantity = 0 }},
		{"quantity above limit", func(r *order.CreateOrderRequest) { r.Details[0].Quantity = 10000 }},
		{"negative price", func(r *order.CreateOrderRequest) {
			r.Details[0].UnitPrice = decimal.RequireFromString("-1")
		}},
		{"price above limit", func(r *order.CreateOrderRequest) {
			r.Details[0].UnitPrice = decimal.RequireFromString("1000000.00")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createRequest("Acme Corporation", testNow.Add(-24*time.Hour))
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			fault, ok := domain.AsFault(err)
			require.True(t, ok)
			assert.Equal(t, domain.FaultValidation, fault.Kind)
			assert.Equal(t, 400, fault.Code)
		})
	}

	assert.Empty(t, publisher.events, "rejected requests must not publish events")
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), 424242)
	require.Error(t, err)
	fault, ok := domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, 404, fault.Code)
}

func TestService_Update_ReplacesDetailsWholesale(t *testing.T) {
	svc, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, createRequest("Acme Corporation", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)
	originalDetailID := created.Details[0].ID

	updated, err := svc.Update(ctx, order.UpdateOrderRequest{
		ID:       created.ID,
		Date:     created.Date,
		Customer: "Acme Corporation",
		Details: []order.DetailInput{
			// Присланный идентификатор позиции игнорируется.
			{ID: originalDetailID, Product: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)

	assert.Len(t, updated.Details, 1)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("200.00")),
		"expected total 200.00, got %s", updated.Total)
	assert.Equal(t, domain.OrderStatusPending, updated.Status, "update must not change status")
	assert.NotEqual(t, originalDetailID, updated.Details[0].ID, "detail ids are reissued on update")

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Details, 1)

	assert.Equal(t, []domain.OrderEventType{domain.OrderEventCreated, domain.OrderEventUpdated}, publisher.events)
}

func TestService_Update_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), order.UpdateOrderRequest{
		ID:       424242,
		Date:     testNow.Add(-24 * time.Hour),
		Customer: "Acme Corporation",
		Details: []order.DetailInput{
			{Product: "Widget", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	require.Error(t, err)
	fault, ok := domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, 404, fault.Code)
}

func TestService_Update_AllowsAnyDate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, createRequest("Acme Corporation", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)

	// Правило "не в будущем" действует только при создании.
	_, err = svc.Update(ctx, order.UpdateOrderRequest{
		ID:       created.ID,
		Date:     testNow.Add(72 * time.Hour),
		Customer: "Acme Corporation",
		Details: []order.DetailInput{
			{Product: "Widget", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	assert.NoError(t, err)
}

func TestService_Delete(t *testing.T) {
	svc, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, createRequest("Acme Corporation", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	require.Error(t, err)
	fault, ok := domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, 404, fault.Code)

	err = svc.Delete(ctx, created.ID)
	require.Error(t, err)
	fault, ok = domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, 404, fault.Code)

	assert.Equal(t, []domain.OrderEventType{domain.OrderEventCreated, domain.OrderEventDeleted}, publisher.events)
}

func TestService_List_PaginationMetadata(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		_, err := svc.Create(ctx, createRequest("Acme Corporation", time.Date(2025, 5, day, 10, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
	}

	result, err := svc.List(ctx, order.ListOrdersRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, result.Items, 2)
	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasPrevious)
	assert.True(t, result.HasNext)

	// Сортировка по дате по убыванию: вторая страница продолжает хвост.
	assert.True(t, result.Items[0].Date.After(result.Items[1].Date))

	last, err := svc.List(ctx, order.ListOrdersRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Items, 1)
	assert.False(t, last.HasNext)
}

func TestService_List_NormalizesPageParams(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.List(context.Background(), order.ListOrdersRequest{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 10, result.PageSize)

	result, err = svc.List(context.Background(), order.ListOrdersRequest{Page: 1, PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, 100, result.PageSize)
}

func TestService_List_CustomerFilter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, createRequest("Acme Corporation", time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createRequest("Globex", time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	result, err := svc.List(ctx, order.ListOrdersRequest{Customer: "acme"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Acme Corporation", result.Items[0].Customer)
}

func TestService_EndToEndLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, createRequest("Acme Corporation", testNow.Add(-24*time.Hour)))
	require.NoError(t, err)
	require.True(t, created.Total.Equal(decimal.RequireFromString("950.00")))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Details, 2)

	updated, err := svc.Update(ctx, order.UpdateOrderRequest{
		ID:       created.ID,
		Date:     created.Date,
		Customer: "Acme Corporation",
		Details: []order.DetailInput{
			{Product: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)
	require.True(t, updated.Total.Equal(decimal.RequireFromString("200.00")))

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	fault, ok := domain.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, 404, fault.Code)
}
