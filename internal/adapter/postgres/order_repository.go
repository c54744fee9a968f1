package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

const selectOrder = `
	SELECT id, customer_name, customer_phone, customer_location, customer_notes,
	       subtotal, delivery_fee, total, payment_method, payment_status, status,
	       restaurant_id, rider_id, created_at, updated_at
	FROM orders
`

type orderRepository struct {
	db  DB
	now func() time.Time
}

func NewOrderRepository(db DB) interfaces.OrderStore {
	return &orderRepository{db: db, now: time.Now}
}

func (r *orderRepository) Append(ctx context.Context, order *domain.Order) error {
	return inTx(ctx, r.db, "append", func(tx Tx) error {
		query := `
			INSERT INTO orders (id, customer_name, customer_phone, customer_location, customer_notes,
			                    subtotal, delivery_fee, total, payment_method, payment_status, status,
			                    restaurant_id, rider_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, query,
			order.ID, order.Customer.Name, order.Customer.Phone, order.Customer.Location, order.Customer.Notes,
			order.Subtotal, order.DeliveryFee, order.Total, order.PaymentMethod, string(order.PaymentStatus),
			string(order.Status), order.RestaurantID, order.RiderID, order.CreatedAt, order.UpdatedAt,
		)
		if err != nil {
			return persistence("append", fmt.Errorf("failed to insert order: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return &domain.ConflictError{OrderID: order.ID, Reason: domain.ConflictDuplicateID}
		}

		for i, item := range order.Items {
			options := item.Options
			if options == nil {
				options = []string{}
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (order_id, position, item_id, name, price, quantity, options)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, order.ID, i, item.ID, item.Name, item.Price, item.Quantity, options)
			if err != nil {
				return persistence("append", fmt.Errorf("failed to insert order item: %w", err))
			}
		}

		if err := logStatus(ctx, tx, order.ID, nil, order.Status, domain.RoleCustomer, order.Customer.Phone, order.CreatedAt); err != nil {
			return persistence("append", err)
		}
		return nil
	})
}

// UpdateStatus locks the order row, re-checks the change against what is
// stored and writes it only if the status is still change.From.
func (r *orderRepository) UpdateStatus(ctx context.Context, change domain.Change) (*domain.Order, error) {
	if err := change.Authorize(); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := inTx(ctx, r.db, "update_status", func(tx Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRow(ctx, selectOrder+" WHERE id = $1 FOR UPDATE", change.OrderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return persistence("update_status", fmt.Errorf("failed to lock order: %w", err))
		}

		if err := order.TransitionTo(change, r.now()); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, rider_id = $2, updated_at = $3
			WHERE id = $4 AND status = $5
		`, string(order.Status), order.RiderID, order.UpdatedAt, order.ID, string(change.From))
		if err != nil {
			return persistence("update_status", fmt.Errorf("failed to update order: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return &domain.ConflictError{OrderID: order.ID, Reason: domain.ConflictStatusMismatch}
		}

		from := change.From
		if err := logStatus(ctx, tx, order.ID, &from, order.Status, change.Actor.Role, change.Actor.ID, order.UpdatedAt); err != nil {
			return persistence("update_status", err)
		}

		items, err := loadItems(ctx, tx, []string{order.ID})
		if err != nil {
			return persistence("update_status", err)
		}
		order.Items = items[order.ID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, selectOrder+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, persistence("get", err)
	}

	items, err := loadItems(ctx, r.db, []string{order.ID})
	if err != nil {
		return nil, persistence("get", err)
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if filter.RestaurantID != "" {
		where = append(where, "restaurant_id = "+arg(filter.RestaurantID))
	}
	if filter.RiderID != "" {
		where = append(where, "rider_id = "+arg(filter.RiderID))
	}
	if filter.CustomerPhone != "" {
		where = append(where, "customer_phone = "+arg(filter.CustomerPhone))
	}
	if filter.Unclaimed {
		where = append(where, "rider_id IS NULL")
	}
	if !filter.CreatedBefore.IsZero() {
		where = append(where, "created_at < "+arg(filter.CreatedBefore))
	}
	if q := filter.SearchTerm(); q != "" {
		p := arg(q)
		where = append(where, "(strpos(lower(id), "+p+") > 0 OR strpos(lower(customer_name), "+p+") > 0)")
	}

	query := selectOrder
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, persistence("list", fmt.Errorf("failed to query orders: %w", err))
	}
	defer rows.Close()

	var (
		orders []*domain.Order
		ids    []string
	)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, persistence("list", fmt.Errorf("failed to scan order: %w", err))
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := loadItems(ctx, r.db, ids)
	if err != nil {
		return nil, persistence("list", err)
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, nil
}

func (r *orderRepository) History(ctx context.Context, id string) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, from_status, to_status, role, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, persistence("history", fmt.Errorf("failed to query status history: %w", err))
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var (
			log      domain.StatusLog
			from     *string
			to, role string
		)
		if err := rows.Scan(&log.ID, &log.OrderID, &from, &to, &role, &log.ChangedBy, &log.ChangedAt); err != nil {
			return nil, persistence("history", fmt.Errorf("failed to scan status log: %w", err))
		}
		if from != nil {
			st := domain.Status(*from)
			log.From = &st
		}
		log.To = domain.Status(to)
		log.Role = domain.Role(role)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("history", err)
	}

	return logs, nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		o                     domain.Order
		paymentStatus, status string
		subtotal, fee, total  decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Location, &o.Customer.Notes,
		&subtotal, &fee, &total, &o.PaymentMethod, &paymentStatus, &status,
		&o.RestaurantID, &o.RiderID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Subtotal, o.DeliveryFee, o.Total = subtotal, fee, total
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Status = domain.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, item_id, name, price, quantity, options
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ID, &item.Name, &item.Price, &item.Quantity, &item.Options); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if len(item.Options) == 0 {
			item.Options = nil
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func logStatus(ctx context.Context, q querier, orderID string, from *domain.Status, to domain.Status, role domain.Role, changedBy string, at time.Time) error {
	var fromValue *string
	if from != nil {
		s := string(*from)
		fromValue = &s
	}

	_, err := q.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, role, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, fromValue, string(to), string(role), changedBy, at)
	if err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func persistence(op string, err error) error {
	return &domain.PersistenceError{Op: op, Err: err}
}
