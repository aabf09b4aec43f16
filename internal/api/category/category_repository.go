package category

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/secondhand-market/app/db"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ CategoryRepo = (*PostgresCategoryRepo)(nil)

type CategoryRepo interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
}

type PostgresCategoryRepo struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresCategoryRepo(db database.Querier, logger *slog.Logger) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresCategoryRepo) ListCategories(ctx context.Context) ([]types.Category, error) {
	ctx, span := otel.Tracer("CategoryRepo").Start(ctx, "ListCategories", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "categories"),
	))
	defer span.End()
	start := time.Now()

	rows, err := r.db.Query(ctx, `SELECT id, name, slug, sort_order FROM categories ORDER BY sort_order, id`)
	if err != nil {
		database.ObserveQuery(ctx, "categories", "SELECT", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]types.Category, 0, 16)
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	err = rows.Err()
	database.ObserveQuery(ctx, "categories", "SELECT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rows iteration failed")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	r.logger.DebugContext(ctx, "Categories loaded", slog.Int("count", len(categories)))
	return categories, nil
}
