package repository

import (
	"context"
	"shopmind/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ProductRepository reads the storefront catalog. The assistant only ever
// needs the active slice of it, fetched wholesale during knowledge refresh.
type ProductRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProductRepository(db *pgxpool.Pool, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]*models.Product, error) {
	query := squirrel.Select("id", "name", "price", "description", "category", "tags", "brand", "sku", "stock_quantity", "main_image").
		From("products").
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Description, &p.Category, &p.Tags, &p.Brand, &p.SKU, &p.StockQuantity, &p.MainImage,
		); err != nil {
			return nil, err
		}
		p.IsActive = true
		products = append(products, &p)
	}

	return products, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := squirrel.Insert("products").
		Columns("id", "name", "price", "description", "category", "tags", "brand", "sku", "stock_quantity", "main_image", "is_active").
		Values(p.ID, p.Name, p.Price, p.Description, p.Category, p.Tags, p.Brand, p.SKU, p.StockQuantity, p.MainImage, p.IsActive).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
