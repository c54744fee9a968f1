package order

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/adapter/cache"
	"github.com/YelzhanWeb/campuseats/internal/adapter/filestore"
	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type recordingPublisher struct {
	mu     sync.Mutex
	orders []interfaces.OrderMessage
	err    error
}

func (p *recordingPublisher) PublishOrder(ctx context.Context, msg interfaces.OrderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, msg)
	return nil
}

func (p *recordingPublisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	return nil
}

var directory = domain.Directory{
	"mama-put": {ID: "mama-put", Name: "Mama Put Kitchen", DeliveryFee: decimal.NewFromInt(500)},
}

const adaPhone = "08012345678"

type fixture struct {
	service   *Service
	store     *filestore.OrderStore
	carts     interfaces.CartRepository
	publisher *recordingPublisher
	failWrite *bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	failWrite := false
	store, err := filestore.Open(filepath.Join(t.TempDir(), "orders.json"),
		filestore.WithWriter(func(path string, data []byte) error {
			if failWrite {
				return errors.New("disk full")
			}
			return filestore.WriteAtomic(path, data)
		}))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	carts := cache.NewCartRepository(rdb, time.Hour)
	publisher := &recordingPublisher{}
	svc := NewService(store, carts, cache.NewIdempotencyStore(rdb, time.Hour), publisher,
		logger.Nop(), directory, retry.Policy{Attempts: 2})

	return &fixture{service: svc, store: store, carts: carts, publisher: publisher, failWrite: &failWrite}
}

func (f *fixture) fillCart(t *testing.T, id string) {
	t.Helper()
	c := domain.NewCart(id)
	jollof := domain.CartItem{ID: "jollof", Name: "Jollof Rice", Price: decimal.NewFromInt(1500), RestaurantID: "mama-put"}
	require.NoError(t, c.AddItem(jollof))
	require.NoError(t, c.AddItem(jollof))
	require.NoError(t, f.carts.Save(context.Background(), adaPhone, c))
}

func checkoutCommand(cartID string) interfaces.SubmitOrderCommand {
	return interfaces.SubmitOrderCommand{
		Actor:         domain.CustomerActor(adaPhone),
		CartID:        cartID,
		Customer:      domain.CustomerInfo{Name: "Ada", Phone: adaPhone, Location: "Hall 3, Room 12"},
		PaymentMethod: "cash",
	}
}

func TestSubmitOrderFromCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	order, err := f.service.SubmitOrder(ctx, checkoutCommand("cart-1"))
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "mama-put", order.RestaurantID)
	assert.True(t, decimal.NewFromInt(3000).Equal(order.Subtotal))
	assert.True(t, decimal.NewFromInt(3500).Equal(order.Total))

	stored, err := f.store.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Total.String(), stored.Total.String())

	cart, err := f.carts.Load(ctx, adaPhone, "cart-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.Len(t, f.publisher.orders, 1)
	assert.Equal(t, order.ID, f.publisher.orders[0].OrderID)
}

func TestSubmitOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitOrder(context.Background(), checkoutCommand("cart-empty"))
	assert.True(t, domain.IsValidation(err))

	orders, _ := f.store.List(context.Background(), domain.OrderFilter{})
	assert.Empty(t, orders)
}

func TestSubmitOrderUnknownRestaurant(t *testing.T) {
	f := newFixture(t)
	cmd := checkoutCommand("")
	cmd.RestaurantID = "nowhere"
	cmd.Items = []domain.CartItem{{ID: "x", Name: "X", Price: decimal.NewFromInt(100), Quantity: 1}}

	_, err := f.service.SubmitOrder(context.Background(), cmd)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "restaurantId", verr.Fields[0].Field)
}

func TestSubmitOrderMissingLocationKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	cmd := checkoutCommand("cart-1")
	cmd.Customer.Location = ""
	_, err := f.service.SubmitOrder(ctx, cmd)
	assert.True(t, domain.IsValidation(err))

	cart, _ := f.carts.Load(ctx, adaPhone, "cart-1")
	assert.Equal(t, 2, cart.ItemCount())
}

func TestSubmitOrderIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	cmd := checkoutCommand("cart-1")
	cmd.IdempotencyKey = "key-1"
	first, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)

	f.fillCart(t, "cart-1")
	second, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	orders, _ := f.store.List(ctx, domain.OrderFilter{})
	assert.Len(t, orders, 1)
}

func TestSubmitOrderIdempotencyKeyIsPerCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	items := []domain.CartItem{{ID: "jollof", Name: "Jollof Rice", Price: decimal.NewFromInt(1500), Quantity: 1}}

	alice := interfaces.SubmitOrderCommand{
		Actor:          domain.CustomerActor("08011111111"),
		IdempotencyKey: "checkout-1",
		Items:          items,
		RestaurantID:   "mama-put",
		Customer:       domain.CustomerInfo{Name: "Alice", Phone: "08011111111", Location: "Hall 1"},
		PaymentMethod:  "opay",
	}
	bob := alice
	bob.Actor = domain.CustomerActor("08022222222")
	bob.Customer = domain.CustomerInfo{Name: "Bob", Phone: "08022222222", Location: "Hall 2"}

	first, err := f.service.SubmitOrder(ctx, alice)
	require.NoError(t, err)
	second, err := f.service.SubmitOrder(ctx, bob)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Bob", second.Customer.Name)
	assert.Equal(t, "08022222222", second.Customer.Phone)

	orders, _ := f.store.List(ctx, domain.OrderFilter{})
	assert.Len(t, orders, 2)
}

func TestSubmitOrderForOtherPhoneIsForbidden(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	cmd := checkoutCommand("cart-1")
	cmd.Actor = domain.CustomerActor("08099999999")
	_, err := f.service.SubmitOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cmd.Actor = domain.RiderActor(adaPhone)
	_, err = f.service.SubmitOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSubmitOrderCannotUseAnotherCustomersCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	cmd := checkoutCommand("cart-1")
	cmd.Actor = domain.CustomerActor("08099999999")
	cmd.Customer.Phone = "08099999999"
	_, err := f.service.SubmitOrder(ctx, cmd)
	assert.True(t, domain.IsValidation(err))

	cart, err := f.carts.Load(ctx, adaPhone, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount())
}

func TestSubmitOrderRegeneratesDuplicateID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ids := []string{"ORD-AAAAAAAA", "ORD-AAAAAAAA", "ORD-BBBBBBBB"}
	f.service.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	f.fillCart(t, "cart-1")
	first, err := f.service.SubmitOrder(ctx, checkoutCommand("cart-1"))
	require.NoError(t, err)
	f.fillCart(t, "cart-1")
	second, err := f.service.SubmitOrder(ctx, checkoutCommand("cart-1"))
	require.NoError(t, err)

	assert.Equal(t, "ORD-AAAAAAAA", first.ID)
	assert.Equal(t, "ORD-BBBBBBBB", second.ID)
}

func TestSubmitOrderIdempotencyFollowsRegeneratedID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ids := []string{"ORD-AAAAAAAA", "ORD-AAAAAAAA", "ORD-BBBBBBBB", "ORD-CCCCCCCC"}
	f.service.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	f.fillCart(t, "cart-1")
	_, err := f.service.SubmitOrder(ctx, checkoutCommand("cart-1"))
	require.NoError(t, err)

	f.fillCart(t, "cart-1")
	cmd := checkoutCommand("cart-1")
	cmd.IdempotencyKey = "key-1"
	placed, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "ORD-BBBBBBBB", placed.ID)

	replayed, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "ORD-BBBBBBBB", replayed.ID)
}

func TestSubmitOrderExplicitDuplicateID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.fillCart(t, "cart-1")
	cmd := checkoutCommand("cart-1")
	cmd.OrderID = "ORD-FIXED"
	_, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)

	f.fillCart(t, "cart-1")
	_, err = f.service.SubmitOrder(ctx, cmd)

	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ConflictDuplicateID, cerr.Reason)
}

func TestSubmitOrderPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fillCart(t, "cart-1")

	*f.failWrite = true
	cmd := checkoutCommand("cart-1")
	cmd.IdempotencyKey = "key-1"
	_, err := f.service.SubmitOrder(ctx, cmd)
	assert.True(t, domain.IsPersistence(err))

	cart, _ := f.carts.Load(ctx, adaPhone, "cart-1")
	assert.Equal(t, 2, cart.ItemCount())
	assert.Empty(t, f.publisher.orders)

	// Ключ освобожден, повтор создает заказ
	*f.failWrite = false
	order, err := f.service.SubmitOrder(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
}

func TestSubmitOrderPublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.fillCart(t, "cart-1")

	order, err := f.service.SubmitOrder(ctx, checkoutCommand("cart-1"))
	require.NoError(t, err)

	_, err = f.store.Get(ctx, order.ID)
	assert.NoError(t, err)
}

func TestNewOrderIDFormat(t *testing.T) {
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, NewOrderID())
	assert.NotEqual(t, NewOrderID(), NewOrderID())
}
