package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PaginationParams is the page window and sort order parsed from the
// query string, clamped to sane bounds.
type PaginationParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
}

type PaginationMeta struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"page_size"`
	Total        int64 `json:"total"`
	TotalPages   int   `json:"total_pages"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
	NextPage     *int  `json:"next_page,omitempty"`
	PreviousPage *int  `json:"previous_page,omitempty"`
}

func GetPaginationParams(c *gin.Context) *PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	order := c.DefaultQuery("order", "desc")
	if order != "asc" {
		order = "desc"
	}

	return &PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Sort:     c.DefaultQuery("sort", "created_at"),
		Order:    order,
	}
}

func (p *PaginationParams) GetSkip() int64 {
	return int64((p.Page - 1) * p.PageSize)
}

func (p *PaginationParams) GetLimit() int64 {
	return int64(p.PageSize)
}

// GetSortOptions translates the window into driver find options.
func (p *PaginationParams) GetSortOptions() *options.FindOptions {
	sortField := p.Sort
	if sortField == "" {
		sortField = "created_at"
	}
	sortOrder := -1
	if p.Order == "asc" {
		sortOrder = 1
	}

	return options.Find().
		SetSkip(p.GetSkip()).
		SetLimit(p.GetLimit()).
		SetSort(bson.D{{Key: sortField, Value: sortOrder}})
}

func CreatePaginationMeta(params *PaginationParams, total int64) *PaginationMeta {
	totalPages := int(math.Ceil(float64(total) / float64(params.PageSize)))

	meta := &PaginationMeta{
		Page:        params.Page,
		PageSize:    params.PageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     params.Page < totalPages,
		HasPrevious: params.Page > 1,
	}

	if meta.HasNext {
		next := params.Page + 1
		meta.NextPage = &next
	}
	if meta.HasPrevious {
		previous := params.Page - 1
		meta.PreviousPage = &previous
	}

	return meta
}
