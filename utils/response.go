package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PaginationData struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
	})
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
		"data":    data,
	})
}

func ErrorWithCode(c *gin.Context, httpCode int, errCode string, message string) {
	c.JSON(httpCode, gin.H{
		"success": false,
		"code":    errCode,
		"message": message,
	})
}
