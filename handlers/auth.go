package handlers

import (
	"net/http"

	"clouddrive/services"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	user, err := getServices().Auth.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, user)
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	out, err := getServices().Auth.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func Logout(c *gin.Context) {
	token := c.GetString("token")
	if err := getServices().Auth.Logout(c.Request.Context(), token); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "logged out"})
}

func GetProfile(c *gin.Context) {
	out, err := getServices().Auth.GetProfile(c.Request.Context(), c.GetUint("user_id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

// GoogleLogin redirects the browser into the Google consent flow.
func GoogleLogin(c *gin.Context) {
	state := uuid.New().String()
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, getServices().Auth.GoogleAuthURL(state))
}

func GoogleCallback(c *gin.Context) {
	state, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != c.Query("state") {
		utils.Error(c, http.StatusBadRequest, "oauth state mismatch")
		return
	}
	code := c.Query("code")
	if code == "" {
		utils.Error(c, http.StatusBadRequest, "missing oauth code")
		return
	}

	out, err := getServices().Auth.GoogleCallback(c.Request.Context(), code)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}
