package query

import "github.com/MrSnakeDoc/shelf/internal/domain"

// Edge pairs a record with the cursor that resumes after it.
type Edge struct {
	Node   *domain.Bookmark `json:"node"`
	Cursor string           `json:"cursor"`
}

type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

// Connection is one page of bookmarks.
// TotalCount is the size of the store, not of the visible set.
type Connection struct {
	Edges      []Edge   `json:"edges"`
	PageInfo   PageInfo `json:"pageInfo"`
	TotalCount int64    `json:"totalCount"`
}
