package product

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var productRowColumns = []string{
	"id", "seller_id", "username", "category_id", "slug", "title", "description",
	"price", "condition", "location", "status", "view_count", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresProductRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresProductRepo(mock, slog.Default()), mock
}

func TestPostgresProductRepo_Search(t *testing.T) {
	repo, mock := newMockRepo(t)
	seller := uuid.New()
	now := time.Now()
	idA, idB := uuid.New(), uuid.New()

	cols := append(append([]string{}, productRowColumns...), "images")
	mock.ExpectQuery("SELECT (.+) FROM products p (.+) LEFT JOIN LATERAL (.+) WHERE p.status (.+) ORDER BY p.price ASC").
		WithArgs("available", "electronics", 20, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(idA, seller, "seller01", 1, "electronics", "Phone", "Works fine", 120.0,
				"good", "Lisbon", "available", 3, now, now,
				[]string{"https://cdn.example.com/a1.jpg", "https://cdn.example.com/a2.jpg"}).
			AddRow(idB, seller, "seller01", 1, "electronics", "Charger", "", 15.5,
				"new", "", "available", 0, now, now, []string{}))

	products, err := repo.Search(context.Background(), types.ProductFilter{
		Status: "available", Category: "electronics", Sort: types.SortPriceAsc, Page: 1, Limit: 20,
	})
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, idA, products[0].ID)
	assert.Equal(t, types.ConditionGood, products[0].Condition)
	assert.Equal(t, types.ProductStatusAvailable, products[0].Status)
	require.NotNil(t, products[0].ThumbnailURL)
	assert.Equal(t, "https://cdn.example.com/a1.jpg", *products[0].ThumbnailURL)

	assert.Empty(t, products[1].Images)
	assert.NotNil(t, products[1].Images)
	assert.Nil(t, products[1].ThumbnailURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepo_Count(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("available").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	total, err := repo.Count(context.Background(), types.ProductFilter{Status: "available", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepo_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	mock.ExpectQuery("FROM products p (.+) WHERE p.id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepo_GetImages(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT image_url FROM product_images").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"image_url"}).
			AddRow("https://cdn.example.com/1.jpg").
			AddRow("https://cdn.example.com/2.jpg"))

	images, err := repo.GetImages(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepo_Create(t *testing.T) {
	seller := uuid.New()
	np := NewProduct{
		SellerID: seller, CategoryID: 4, Title: "Novel", Description: "Paperback",
		Price: 7.5, Condition: types.ConditionLikeNew, Location: "Porto",
		Images: []string{"https://cdn.example.com/n1.jpg", "https://cdn.example.com/n2.jpg"},
	}

	t.Run("product and gallery in one transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO products").
			WithArgs(seller, 4, "Novel", "Paperback", 7.5, "like_new", "Porto").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
		mock.ExpectExec("INSERT INTO product_images (.+) unnest").
			WithArgs(id, np.Images).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectCommit()

		got, err := repo.Create(context.Background(), np)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("image failure rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO products").
			WithArgs(seller, 4, "Novel", "Paperback", 7.5, "like_new", "Porto").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
		mock.ExpectExec("INSERT INTO product_images").
			WithArgs(id, np.Images).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := repo.Create(context.Background(), np)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresProductRepo_Update(t *testing.T) {
	id := uuid.New()

	t.Run("partial update replaces gallery", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		title := "New title"
		images := []string{"https://cdn.example.com/new.jpg"}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE products SET title = (.+), updated_at = NOW").
			WithArgs(title, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("DELETE FROM product_images").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectExec("INSERT INTO product_images").
			WithArgs(id, images).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := repo.Update(context.Background(), id, ProductUpdate{Title: &title, Images: &images})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		price := 10.0
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE products SET price").
			WithArgs(price, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.Update(context.Background(), id, ProductUpdate{Price: &price})
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresProductRepo_StatusAndDelete(t *testing.T) {
	id := uuid.New()

	t.Run("update status", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE products SET status (.+) WHERE id = \$2 AND NOT EXISTS \( SELECT 1 FROM orders`).
			WithArgs("reserved", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, repo.UpdateStatus(context.Background(), id, types.ProductStatusReserved))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update status loses race to an order", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE products SET status (.+) NOT EXISTS`).
			WithArgs("sold", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery("SELECT EXISTS (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		assert.ErrorIs(t, repo.UpdateStatus(context.Background(), id, types.ProductStatusSold), types.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`DELETE FROM products WHERE id = \$1 AND NOT EXISTS \( SELECT 1 FROM orders`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT EXISTS (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		assert.ErrorIs(t, repo.Delete(context.Background(), id), types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete with order placed concurrently", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`DELETE FROM products (.+) NOT EXISTS`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("SELECT EXISTS (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		err := repo.Delete(context.Background(), id)
		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NotErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active order check", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT EXISTS (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		active, err := repo.HasActiveOrder(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
