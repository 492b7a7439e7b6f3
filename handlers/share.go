package handlers

import (
	"net/http"
	"strconv"
	"time"

	"clouddrive/services"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

type CreateShareRequest struct {
	Email       string     `json:"email" binding:"required,email"`
	Permissions string     `json:"permissions" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func CreateShare(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	var req CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	share, err := getServices().Share.CreateShare(c.Request.Context(), c.GetUint("user_id"), fileID, services.CreateShareInput{
		Email:       req.Email,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, share)
}

func RevokeShare(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}
	shareID, err := strconv.ParseUint(c.Param("shareId"), 10, 32)
	if err != nil || shareID == 0 {
		utils.Error(c, http.StatusBadRequest, "invalid share id")
		return
	}

	if err := getServices().Share.RevokeShare(c.Request.Context(), c.GetUint("user_id"), fileID, uint(shareID)); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "share revoked"})
}

type CreatePublicLinkRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

func CreatePublicLink(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	// Body is optional; an empty POST creates a link without expiry.
	var req CreatePublicLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}

	link, err := getServices().Share.CreatePublicLink(c.Request.Context(), c.GetUint("user_id"), fileID, services.CreatePublicLinkInput{
		ExpiresAt: req.ExpiresAt,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, link)
}

func RevokePublicLink(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := getServices().Share.RevokePublicLink(c.Request.Context(), c.GetUint("user_id"), fileID); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "public link revoked"})
}

// RevokePublicLinkByToken retires the single link named by the token. Only
// the link's owner may call it.
func RevokePublicLinkByToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		utils.Error(c, http.StatusBadRequest, "missing token")
		return
	}

	if err := getServices().Share.RevokePublicLinkByToken(c.Request.Context(), c.GetUint("user_id"), token); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "public link revoked"})
}

// ResolvePublicLink serves anonymous downloads. No auth middleware runs on
// this route.
func ResolvePublicLink(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		utils.Error(c, http.StatusBadRequest, "missing token")
		return
	}

	out, err := getServices().Share.ResolvePublicLink(c.Request.Context(), token)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func listShareParams(c *gin.Context) services.ListSharesParams {
	params := services.ListSharesParams{
		NameFilter:     c.Query("name"),
		RecipientEmail: c.Query("email"),
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if limit, ok := queryAlias(c, "limit", "page_size"); ok {
		params.Limit, _ = strconv.Atoi(limit)
	}
	return params
}

func ListSharedWithMe(c *gin.Context) {
	out, err := getServices().Share.ListSharedWithMe(c.Request.Context(), c.GetUint("user_id"), listShareParams(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func ListSharedByMe(c *gin.Context) {
	out, err := getServices().Share.ListSharedByMe(c.Request.Context(), c.GetUint("user_id"), listShareParams(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}
