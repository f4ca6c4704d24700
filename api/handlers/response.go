package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const HeaderPaginationTotalCount = "X-Pagination-Total-Count"

type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func writeResponse(c *gin.Context, data interface{}, statusCode int, errors []string) {

	if statusCode == http.StatusNoContent {
		c.JSON(statusCode, nil)
		return

	}

	response := response{
		Data:   data,
		Errors: errors,
	}

	c.JSON(statusCode, response)
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// calculatePagination reports more results when the page came back full.
func calculatePagination(numOfResults, limit, offset int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: limit > 0 && numOfResults == limit,
	}
}

// splitList splits a comma-separated query parameter, dropping empty entries.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
