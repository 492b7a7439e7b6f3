package handlers

import (
	"net/http"
	"strconv"

	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

func UploadVersion(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	version, err := getServices().Version.CreateVersion(c.Request.Context(), c.GetUint("user_id"), fileID, file, header)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, version)
}

func ListVersions(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	versions, err := getServices().Version.ListVersions(c.Request.Context(), c.GetUint("user_id"), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"versions": versions})
}

func RestoreVersion(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	versionNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || versionNumber < 1 {
		utils.Error(c, http.StatusBadRequest, "invalid version number")
		return
	}

	version, err := getServices().Version.RestoreVersion(c.Request.Context(), c.GetUint("user_id"), fileID, versionNumber)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, version)
}
