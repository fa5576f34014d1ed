package order

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL order repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the order tables if they do not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating order schema: %w", err)
	}
	return nil
}

// Get retrieves an order by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	query := `
		SELECT
			id, customer_name, customer_phone, address, comment,
			destination_lat, destination_lng,
			distance_km, total_minutes,
			items_cents, delivery_cents, total_cents, free_delivery,
			status, created_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Customer.Name,
		&o.Customer.Phone,
		&o.Customer.Address,
		&o.Customer.Comment,
		&o.Destination.Lat,
		&o.Destination.Lng,
		&o.DistanceKm,
		&o.TotalMinutes,
		&o.ItemsCents,
		&o.DeliveryCents,
		&o.TotalCents,
		&o.FreeDelivery,
		&o.Status,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT menu_item_id, title, price_cents, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.MenuItemID, &item.Title, &item.PriceCents, &item.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

// Create stores the order and its items in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, customer_name, customer_phone, address, comment,
			destination_lat, destination_lng,
			distance_km, total_minutes,
			items_cents, delivery_cents, total_cents, free_delivery,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		o.ID,
		o.Customer.Name,
		o.Customer.Phone,
		o.Customer.Address,
		o.Customer.Comment,
		o.Destination.Lat,
		o.Destination.Lng,
		o.DistanceKm,
		o.TotalMinutes,
		o.ItemsCents,
		o.DeliveryCents,
		o.TotalCents,
		o.FreeDelivery,
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, menu_item_id, title, price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, i, item.MenuItemID, item.Title, item.PriceCents, item.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting order items: %w", err)
	}

	return tx.Commit(ctx)
}

var _ Repository = (*PostgresRepository)(nil)
