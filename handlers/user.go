package handlers

import (
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

func GetQuota(c *gin.Context) {
	out, err := getServices().Quota.GetQuota(c.Request.Context(), c.GetUint("user_id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}
