package handlers

import (
	"net/http"

	"clouddrive/services"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*services.AppError); ok {
		switch {
		case appErr.Code != "":
			utils.ErrorWithCode(c, appErr.HTTPCode, appErr.Code, appErr.Message)
		case appErr.Data != nil:
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		default:
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	utils.Error(c, http.StatusInternalServerError, "internal error")
	return true
}
