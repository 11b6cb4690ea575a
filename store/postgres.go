package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	models "storefront/model"
)

//go:embed migrations.sql
var migrationSQL string

const (
	qCreateProduct = `INSERT INTO products (name, category, price, stock) VALUES ($1, $2, $3, $4) RETURNING id`
	qUpdateProduct = `UPDATE products SET name = COALESCE($2, name), category = COALESCE($3, category), price = COALESCE($4, price), stock = COALESCE($5, stock) WHERE id = $1 RETURNING id, name, category, price, stock`
	qDeleteProduct = `DELETE FROM products WHERE id = $1`
	qGetProduct    = `SELECT id, name, category, price, stock FROM products WHERE id = $1`
	qListProducts  = `SELECT id, name, category, price, stock FROM products ORDER BY id`

	// the existing line keeps its price on conflict
	qAddToCart       = `INSERT INTO cart_items (product_id, name, category, price, quantity) SELECT id, name, category, price, 1 FROM products WHERE id = $1 ON CONFLICT (product_id) DO UPDATE SET quantity = cart_items.quantity + 1 RETURNING product_id, name, category, price, quantity`
	qRemoveCartLine  = `DELETE FROM cart_items WHERE product_id = $1`
	qSetCartQuantity = `UPDATE cart_items SET quantity = $2 WHERE product_id = $1`
	qGetCart         = `SELECT product_id, name, category, price, quantity FROM cart_items ORDER BY seq`
	qLockCart        = qGetCart + ` FOR UPDATE`
	qClearCart       = `DELETE FROM cart_items WHERE product_id = ANY($1)`

	qStock          = `SELECT id, stock FROM products WHERE id = ANY($1) ORDER BY id`
	qLockStock      = qStock + ` FOR UPDATE`
	qDecrementStock = `UPDATE products SET stock = stock - $1 WHERE id = $2`

	qInsertOrder     = `INSERT INTO orders (id, total, customer_address, created_at) VALUES ($1, $2, $3, $4)`
	qInsertOrderItem = `INSERT INTO order_items (order_id, line_no, product_id, name, category, price, quantity) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	qListOrders      = `SELECT id, total, customer_address, created_at FROM orders ORDER BY seq DESC`
	qOrderItems      = `SELECT product_id, name, category, price, quantity FROM order_items WHERE order_id = $1 ORDER BY line_no`

	qGetProfile    = `SELECT role, name, email, member_since, wallet_address, balance FROM profiles WHERE role = $1`
	qUpdateProfile = `UPDATE profiles SET name = COALESCE($2, name), email = COALESCE($3, email) WHERE role = $1 RETURNING role, name, email, member_since, wallet_address, balance`
	qSetWallet     = `UPDATE profiles SET wallet_address = $2 WHERE role = $1`
	qAccrueRevenue = `UPDATE profiles SET balance = balance + $1 WHERE role = $2`
)

// PostgresStore is a Store backed by Postgres. Commit runs in one
// transaction holding row locks on the cart and the purchased products.
type PostgresStore struct {
	DB *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &PostgresStore{DB: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock)
	return p, err
}

func scanCartLine(row scanner) (models.CartLine, error) {
	var l models.CartLine
	err := row.Scan(&l.ProductID, &l.Name, &l.Category, &l.Price, &l.Quantity)
	return l, err
}

func scanProfile(row scanner) (models.Profile, error) {
	var p models.Profile
	var role string
	err := row.Scan(&role, &p.Name, &p.Email, &p.MemberSince, &p.WalletAddress, &p.Balance)
	p.Role = models.Role(role)
	return p, err
}

func collectLines(rows *sql.Rows) ([]models.CartLine, error) {
	defer rows.Close()
	out := []models.CartLine{}
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error) {
	p := models.Product{Name: in.Name, Category: in.Category, Price: in.Price, Stock: in.Stock}
	err := s.DB.QueryRowContext(ctx, qCreateProduct, in.Name, in.Category, in.Price, in.Stock).Scan(&p.ID)
	return p, err
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (models.Product, error) {
	var stock sql.NullInt64
	if patch.Stock != nil {
		stock = sql.NullInt64{Int64: int64(*patch.Stock), Valid: true}
	}
	var price any
	if patch.Price != nil {
		price = *patch.Price
	}
	p, err := scanProduct(s.DB.QueryRowContext(ctx, qUpdateProduct, id, patch.Name, patch.Category, price, stock))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, err
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, qDeleteProduct, id)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx, qGetProduct, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, qListProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddToCart(ctx context.Context, productID int64) (models.CartLine, error) {
	l, err := scanCartLine(s.DB.QueryRowContext(ctx, qAddToCart, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CartLine{}, ErrProductNotFound
	}
	return l, err
}

func (s *PostgresStore) SetCartQuantity(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		_, err := s.DB.ExecContext(ctx, qRemoveCartLine, productID)
		return err
	}
	res, err := s.DB.ExecContext(ctx, qSetCartQuantity, productID, qty)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (s *PostgresStore) GetCart(ctx context.Context) (models.Cart, error) {
	rows, err := s.DB.QueryContext(ctx, qGetCart)
	if err != nil {
		return models.Cart{}, err
	}
	lines, err := collectLines(rows)
	if err != nil {
		return models.Cart{}, err
	}
	return models.Cart{Lines: lines}, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func stockByID(ctx context.Context, q querier, query string, lines []models.CartLine) (map[int64]int, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stock := make(map[int64]int, len(ids))
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		stock[id] = n
	}
	return stock, rows.Err()
}

func lookup(stock map[int64]int) func(int64) (int, bool) {
	return func(id int64) (int, bool) {
		n, ok := stock[id]
		return n, ok
	}
}

func (s *PostgresStore) CheckStock(ctx context.Context, lines []models.CartLine) error {
	stock, err := stockByID(ctx, s.DB, qStock, lines)
	if err != nil {
		return err
	}
	return checkLines(lines, lookup(stock))
}

func (s *PostgresStore) Commit(ctx context.Context, order models.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// no-op once committed
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, qLockCart)
	if err != nil {
		return err
	}
	current, err := collectLines(rows)
	if err != nil {
		return err
	}
	if !(models.Cart{Lines: current}).Equal(models.Cart{Lines: order.Items}) {
		return ErrCartChanged
	}

	// product rows are locked in id order to avoid deadlocks
	stock, err := stockByID(ctx, tx, qLockStock, order.Items)
	if err != nil {
		return err
	}
	if err := checkLines(order.Items, lookup(stock)); err != nil {
		return err
	}

	dec, err := tx.PrepareContext(ctx, qDecrementStock)
	if err != nil {
		return err
	}
	defer dec.Close()
	for _, l := range order.Items {
		if _, err := dec.ExecContext(ctx, l.Quantity, l.ProductID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, qInsertOrder, order.ID, order.Total, order.CustomerAddress, order.Timestamp); err != nil {
		return err
	}
	ins, err := tx.PrepareContext(ctx, qInsertOrderItem)
	if err != nil {
		return err
	}
	defer ins.Close()
	for i, l := range order.Items {
		if _, err := ins.ExecContext(ctx, order.ID, i, l.ProductID, l.Name, l.Category, l.Price, l.Quantity); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, qAccrueRevenue, order.Total, string(models.RoleOwner))
	if err != nil {
		return err
	}
	if ra, err := res.RowsAffected(); err != nil {
		return err
	} else if ra == 0 {
		return ErrProfileNotFound
	}

	// only the paid lines; a line inserted after the cart was locked stays
	ids := make([]int64, 0, len(order.Items))
	for _, l := range order.Items {
		ids = append(ids, l.ProductID)
	}
	if _, err := tx.ExecContext(ctx, qClearCart, pq.Array(ids)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx, qListOrders)
	if err != nil {
		return nil, err
	}
	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.Total, &o.CustomerAddress, &o.Timestamp); err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range orders {
		itemRows, err := s.DB.QueryContext(ctx, qOrderItems, orders[i].ID)
		if err != nil {
			return nil, err
		}
		if orders[i].Items, err = collectLines(itemRows); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, role models.Role) (models.Profile, error) {
	p, err := scanProfile(s.DB.QueryRowContext(ctx, qGetProfile, string(role)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, role models.Role, patch models.ProfilePatch) (models.Profile, error) {
	p, err := scanProfile(s.DB.QueryRowContext(ctx, qUpdateProfile, string(role), patch.Name, patch.Email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (s *PostgresStore) SetWalletAddress(ctx context.Context, role models.Role, address string) error {
	res, err := s.DB.ExecContext(ctx, qSetWallet, string(role), address)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra == 0 {
		return ErrProfileNotFound
	}
	return nil
}
