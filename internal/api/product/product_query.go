package product

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

// productColumns is shared by the listing and detail queries; scanProduct reads them in this order.
const productColumns = `p.id, p.seller_id, u.username, p.category_id, c.slug, p.title, p.description,
       p.price, p.condition, p.location, p.status, p.view_count, p.created_at, p.updated_at`

const productFrom = `
FROM products p
JOIN users u ON u.id = p.seller_id
JOIN categories c ON c.id = p.category_id`

// galleryJoin aggregates each product's images in display order.
// Products without images get an empty array rather than NULL.
const galleryJoin = `
LEFT JOIN LATERAL (
    SELECT array_agg(pi.image_url ORDER BY pi.position, pi.id)
           FILTER (WHERE pi.image_url <> '') AS urls
    FROM product_images pi
    WHERE pi.product_id = p.id
) gallery ON TRUE`

var sortClauses = map[types.ProductSort]string{
	types.SortNewest:    "p.created_at DESC, p.id DESC",
	types.SortOldest:    "p.created_at ASC, p.id ASC",
	types.SortPriceAsc:  "p.price ASC, p.id ASC",
	types.SortPriceDesc: "p.price DESC, p.id DESC",
	types.SortPopular:   "p.view_count DESC, p.created_at DESC, p.id DESC",
}

// orderClause only ever returns whitelisted SQL.
func orderClause(sort types.ProductSort) string {
	if clause, ok := sortClauses[sort]; ok {
		return clause
	}
	return sortClauses[types.SortNewest]
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildWhere turns a normalized filter into a WHERE clause and its positional args.
func buildWhere(f types.ProductFilter) (string, []any) {
	var conds []string
	var args []any
	argID := 1

	if f.Status != types.StatusAll {
		conds = append(conds, fmt.Sprintf("p.status = $%d", argID))
		args = append(args, f.Status)
		argID++
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("c.slug = $%d", argID))
		args = append(args, f.Category)
		argID++
	}
	if f.Query != "" {
		conds = append(conds, fmt.Sprintf(`(p.title ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\')`, argID, argID))
		args = append(args, "%"+escapeLike(f.Query)+"%")
		argID++
	}
	if f.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price >= $%d", argID))
		args = append(args, *f.MinPrice)
		argID++
	}
	if f.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price <= $%d", argID))
		args = append(args, *f.MaxPrice)
		argID++
	}
	if f.SellerID != nil {
		conds = append(conds, fmt.Sprintf("p.seller_id = $%d", argID))
		args = append(args, *f.SellerID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

// searchQuery builds the page query. LIMIT and OFFSET are appended as the last two args.
func searchQuery(f types.ProductFilter) (string, []any) {
	where, args := buildWhere(f)
	n := len(args)
	query := "SELECT " + productColumns + ",\n       COALESCE(gallery.urls, '{}'::text[]) AS images" +
		productFrom + galleryJoin + where +
		"\nORDER BY " + orderClause(f.Sort) +
		fmt.Sprintf("\nLIMIT $%d OFFSET $%d", n+1, n+2)
	return query, append(args, f.Limit, f.Offset())
}

func countQuery(f types.ProductFilter) (string, []any) {
	where, args := buildWhere(f)
	// users is joined only so the count matches the page query exactly.
	return "SELECT COUNT(*)" + productFrom + where, args
}
