package types

import (
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusReserved  ProductStatus = "reserved"
	ProductStatusSold      ProductStatus = "sold"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusAvailable, ProductStatusReserved, ProductStatusSold:
		return true
	}
	return false
}

type ProductCondition string

const (
	ConditionNew     ProductCondition = "new"
	ConditionLikeNew ProductCondition = "like_new"
	ConditionGood    ProductCondition = "good"
	ConditionFair    ProductCondition = "fair"
	ConditionPoor    ProductCondition = "poor"
)

func (c ProductCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ProductSort names an ordering of search results.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortOldest    ProductSort = "oldest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortPopular   ProductSort = "popular"
)

const (
	DefaultPageLimit    = 20
	MaxPageLimit        = 100
	MaxProductImages    = 10
	MaxProductTitleSize = 100
	// StatusAll disables the status filter.
	StatusAll = "all"
)

type Product struct {
	ID             uuid.UUID        `json:"id"`
	SellerID       uuid.UUID        `json:"seller_id"`
	SellerUsername string           `json:"seller_username"`
	CategoryID     int              `json:"category_id"`
	CategorySlug   string           `json:"category_slug"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Price          float64          `json:"price"`
	Condition      ProductCondition `json:"condition"`
	Location       string           `json:"location"`
	Status         ProductStatus    `json:"status"`
	ViewCount      int              `json:"view_count"`
	Images         []string         `json:"images"`
	ThumbnailURL   *string          `json:"thumbnail_url"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ProductFilter carries the listing query. Zero values mean "not set".
type ProductFilter struct {
	Category string
	Query    string
	MinPrice *float64
	MaxPrice *float64
	Status   string
	SellerID *uuid.UUID
	Sort     ProductSort
	Page     int
	Limit    int
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProductPage struct {
	Items   []Product `json:"items"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	HasMore bool      `json:"has_more"`
}

type CreateProductParams struct {
	CategorySlug string           `json:"category"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Price        float64          `json:"price"`
	Condition    ProductCondition `json:"condition"`
	Location     string           `json:"location"`
	Images       []string         `json:"images"`
}

type UpdateProductParams struct {
	CategorySlug *string           `json:"category,omitempty"`
	Title        *string           `json:"title,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Price        *float64          `json:"price,omitempty"`
	Condition    *ProductCondition `json:"condition,omitempty"`
	Location     *string           `json:"location,omitempty"`
	// Images replaces the gallery when non-nil.
	Images *[]string `json:"images,omitempty"`
}

type UpdateStatusRequest struct {
	Status ProductStatus `json:"status"`
}
