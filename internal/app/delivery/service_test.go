package delivery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/adapter/filestore"
	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []interfaces.StatusUpdateMessage
}

func (p *recordingPublisher) PublishOrder(ctx context.Context, msg interfaces.OrderMessage) error {
	return nil
}

func (p *recordingPublisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return nil
}

var directory = domain.Directory{
	"mama-put": {ID: "mama-put", Name: "Mama Put Kitchen", Address: "Behind Faculty of Science", Distance: "0.8 km", DeliveryFee: decimal.NewFromInt(500)},
}

type fixture struct {
	svc       *Service
	store     *filestore.OrderStore
	riders    *filestore.RiderRegistry
	publisher *recordingPublisher
}

func setup(t *testing.T, opts ...filestore.Option) *fixture {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "orders.json"), opts...)
	require.NoError(t, err)

	riders := filestore.NewRiderRegistry()
	publisher := &recordingPublisher{}
	svc := NewService(store, riders, publisher, logger.Nop(), directory, retry.Policy{Attempts: 1}, time.Minute)
	return &fixture{svc: svc, store: store, riders: riders, publisher: publisher}
}

// readyOrder stores an order and walks it to ready_for_pickup as the vendor.
func (f *fixture) readyOrder(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	o, err := domain.NewOrder(domain.NewOrderParams{
		ID:            id,
		Customer:      domain.CustomerInfo{Name: "Ada", Phone: "08012345678", Location: "Hall 3, Room 12"},
		Items:         []domain.OrderItem{{ID: "jollof", Name: "Jollof Rice", Price: decimal.NewFromInt(1500), Quantity: 2}},
		DeliveryFee:   decimal.NewFromInt(500),
		PaymentMethod: "cash",
		RestaurantID:  "mama-put",
		Now:           time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Append(ctx, o))

	vendor := domain.VendorActor("v1", "mama-put")
	for _, step := range [][2]domain.Status{
		{domain.StatusPending, domain.StatusAccepted},
		{domain.StatusAccepted, domain.StatusPreparing},
		{domain.StatusPreparing, domain.StatusReadyForPickup},
	} {
		_, err := f.store.UpdateStatus(ctx, domain.Change{OrderID: id, From: step[0], To: step[1], Actor: vendor})
		require.NoError(t, err)
	}
}

func (f *fixture) online(t *testing.T, id string) domain.Actor {
	t.Helper()
	rider := domain.RiderActor(id)
	_, err := f.svc.GoOnline(context.Background(), rider, "Rider "+id)
	require.NoError(t, err)
	return rider
}

func TestFullDelivery(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")
	rider := f.online(t, "r1")

	available, err := f.svc.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Mama Put Kitchen", available[0].Restaurant)
	assert.Equal(t, "2x Jollof Rice", available[0].Items)
	assert.True(t, decimal.NewFromInt(500).Equal(available[0].Earnings))

	o, err := f.svc.Claim(ctx, rider, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForPickup, o.Status)
	require.NotNil(t, o.RiderID)
	assert.Equal(t, "r1", *o.RiderID)

	available, _ = f.svc.Available(ctx)
	assert.Empty(t, available)
	mine, err := f.svc.Mine(ctx, rider)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "r1", mine[0].RiderID)

	o, err = f.svc.MarkPickedUp(ctx, rider, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, o.Status)

	o, err = f.svc.MarkDelivered(ctx, rider, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, o.Status)

	mine, _ = f.svc.Mine(ctx, rider)
	assert.Empty(t, mine)

	r, err := f.riders.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.DeliveriesCompleted)

	require.Len(t, f.publisher.statuses, 3)
	assert.Equal(t, "r1", f.publisher.statuses[0].RiderID)
	assert.Equal(t, domain.StatusReadyForPickup, f.publisher.statuses[0].NewStatus)
}

func TestDeliveryHistory(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f := setup(t, filestore.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	r1 := f.online(t, "r1")
	r2 := f.online(t, "r2")

	deliver := func(rider domain.Actor, id string) {
		f.readyOrder(t, id)
		_, err := f.svc.Claim(ctx, rider, id)
		require.NoError(t, err)
		_, err = f.svc.MarkPickedUp(ctx, rider, id)
		require.NoError(t, err)
		_, err = f.svc.MarkDelivered(ctx, rider, id)
		require.NoError(t, err)
	}
	deliver(r1, "ORD-1")
	deliver(r2, "ORD-2")
	deliver(r1, "ORD-3")

	// claimed but still on the road
	f.readyOrder(t, "ORD-4")
	_, err := f.svc.Claim(ctx, r1, "ORD-4")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, r1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "ORD-3", history[0].OrderID)
	assert.Equal(t, "ORD-1", history[1].OrderID)
	for _, task := range history {
		assert.Equal(t, domain.StatusDelivered, task.Status)
		assert.Equal(t, "r1", task.RiderID)
		assert.True(t, decimal.NewFromInt(500).Equal(task.Earnings))
	}

	history, err = f.svc.History(ctx, r2)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ORD-2", history[0].OrderID)

	history, err = f.svc.History(ctx, f.online(t, "r3"))
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.History(ctx, domain.CustomerActor("08012345678"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestClaimRaceHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")

	const n = 10
	riders := make([]domain.Actor, n)
	for i := range riders {
		riders[i] = f.online(t, fmt.Sprintf("r%d", i))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		lost []error
	)
	for _, rider := range riders {
		wg.Add(1)
		go func(rider domain.Actor) {
			defer wg.Done()
			_, err := f.svc.Claim(ctx, rider, "ORD-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			lost = append(lost, err)
		}(rider)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	require.Len(t, lost, n-1)
	for _, err := range lost {
		var cerr *domain.ConflictError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, domain.ConflictAlreadyClaimed, cerr.Reason)
		assert.Equal(t, "already claimed by another rider", cerr.Message())
	}
}

func TestClaimRequiresOnline(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")

	rider := domain.RiderActor("ghost")
	_, err := f.svc.Claim(ctx, rider, "ORD-1")
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictRiderOffline, cerr.Reason)

	f.online(t, "ghost")
	require.NoError(t, f.svc.GoOffline(ctx, rider))
	_, err = f.svc.Claim(ctx, rider, "ORD-1")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictRiderOffline, cerr.Reason)
}

func TestClaimStaleHeartbeat(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")
	rider := f.online(t, "r1")

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := f.svc.Claim(ctx, rider, "ORD-1")
	assert.True(t, domain.IsConflict(err))

	require.NoError(t, f.svc.Heartbeat(ctx, rider))
	_, err = f.svc.Claim(ctx, rider, "ORD-1")
	assert.NoError(t, err)
}

func TestOnlyClaimerProgresses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")
	owner := f.online(t, "r1")
	other := f.online(t, "r2")

	_, err := f.svc.MarkPickedUp(ctx, owner, "ORD-1")
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictInvalidTransition, cerr.Reason)

	_, err = f.svc.Claim(ctx, owner, "ORD-1")
	require.NoError(t, err)

	_, err = f.svc.MarkPickedUp(ctx, other, "ORD-1")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictNotYourDelivery, cerr.Reason)

	_, err = f.svc.MarkDelivered(ctx, owner, "ORD-1")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictStatusMismatch, cerr.Reason)
}

func TestClaimAfterPickup(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.readyOrder(t, "ORD-1")
	rider := f.online(t, "r1")

	_, err := f.svc.Claim(ctx, rider, "ORD-1")
	require.NoError(t, err)
	_, err = f.svc.MarkPickedUp(ctx, rider, "ORD-1")
	require.NoError(t, err)

	late := f.online(t, "r2")
	_, err = f.svc.Claim(ctx, late, "ORD-1")
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "order no longer available", cerr.Message())
}

func TestRiderActionsRequireRiderRole(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Claim(context.Background(), domain.VendorActor("v1", "mama-put"), "ORD-1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
