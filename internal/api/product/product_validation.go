package product

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const (
	maxDescriptionLen = 5000
	maxLocationLen    = 100
	maxQueryLen       = 100
	maxPrice          = 9999999999.99
	// maxOffset bounds page*limit so the OFFSET never overflows.
	maxOffset = 1_000_000
)

// NormalizeFilter applies defaults and rejects filters the listing query cannot serve.
func NormalizeFilter(f types.ProductFilter) (types.ProductFilter, error) {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.Query = strings.TrimSpace(f.Query)
	if utf8.RuneCountInString(f.Query) > maxQueryLen {
		return f, fmt.Errorf("search query longer than %d characters: %w", maxQueryLen, types.ErrValidation)
	}

	switch {
	case f.Page == 0:
		f.Page = 1
	case f.Page < 0:
		return f, fmt.Errorf("page must be positive: %w", types.ErrValidation)
	}
	switch {
	case f.Limit == 0:
		f.Limit = types.DefaultPageLimit
	case f.Limit < 0:
		return f, fmt.Errorf("limit must be positive: %w", types.ErrValidation)
	case f.Limit > types.MaxPageLimit:
		f.Limit = types.MaxPageLimit
	}
	if f.Page-1 > maxOffset/f.Limit {
		return f, fmt.Errorf("page %d is out of range: %w", f.Page, types.ErrValidation)
	}

	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	switch {
	case f.Status == "":
		f.Status = string(types.ProductStatusAvailable)
	case f.Status == types.StatusAll:
	case !types.ProductStatus(f.Status).Valid():
		return f, fmt.Errorf("unknown status %q: %w", f.Status, types.ErrValidation)
	}

	if f.Sort == "" {
		f.Sort = types.SortNewest
	}
	if _, ok := sortClauses[f.Sort]; !ok {
		return f, fmt.Errorf("unknown sort %q: %w", f.Sort, types.ErrValidation)
	}

	if !finite(f.MinPrice) || !finite(f.MaxPrice) {
		return f, fmt.Errorf("price bounds must be finite numbers: %w", types.ErrValidation)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return f, fmt.Errorf("min_price must not be negative: %w", types.ErrValidation)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return f, fmt.Errorf("max_price must not be negative: %w", types.ErrValidation)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, fmt.Errorf("min_price is greater than max_price: %w", types.ErrValidation)
	}
	return f, nil
}

func finite(p *float64) bool {
	return p == nil || (!math.IsNaN(*p) && !math.IsInf(*p, 0))
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n == 0 || n > types.MaxProductTitleSize {
		return "", fmt.Errorf("title must be 1 to %d characters: %w", types.MaxProductTitleSize, types.ErrValidation)
	}
	return title, nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || price < 0 || price > maxPrice {
		return fmt.Errorf("price must be between 0 and %.2f: %w", maxPrice, types.ErrValidation)
	}
	return nil
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "", fmt.Errorf("description longer than %d characters: %w", maxDescriptionLen, types.ErrValidation)
	}
	return description, nil
}

func validateLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if utf8.RuneCountInString(location) > maxLocationLen {
		return "", fmt.Errorf("location longer than %d characters: %w", maxLocationLen, types.ErrValidation)
	}
	return location, nil
}

func validateCondition(c types.ProductCondition) (types.ProductCondition, error) {
	if c == "" {
		return types.ConditionGood, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition %q: %w", c, types.ErrValidation)
	}
	return c, nil
}

// validateImages trims the URLs and checks count and scheme.
func validateImages(images []string) ([]string, error) {
	if len(images) > types.MaxProductImages {
		return nil, fmt.Errorf("at most %d images allowed: %w", types.MaxProductImages, types.ErrValidation)
	}
	out := make([]string, 0, len(images))
	for _, raw := range images {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid image url %q: %w", raw, types.ErrValidation)
		}
		out = append(out, raw)
	}
	return out, nil
}
