package handlers

import (
	"net/http"
	"strconv"

	"clouddrive/services"
	"clouddrive/utils"

	"github.com/gin-gonic/gin"
)

func parseFileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "invalid file id")
		return 0, false
	}
	return uint(id), true
}

func parseOptionalUint(value string) (*uint, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil, err
	}
	id := uint(parsed)
	return &id, nil
}

// queryAlias returns the first query parameter present among names. The API
// documents camelCase names; the snake_case forms are kept as aliases.
func queryAlias(c *gin.Context, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := c.GetQuery(name); ok {
			return v, true
		}
	}
	return "", false
}

func formAlias(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v, ok := c.GetPostForm(name); ok {
			return v
		}
	}
	return ""
}

func UploadFile(c *gin.Context) {
	userID := c.GetUint("user_id")

	parentID, err := parseOptionalUint(formAlias(c, "parentId", "parent_id"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid parentId")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	record, err := getServices().File.Upload(c.Request.Context(), userID, parentID, file, header)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, record)
}

func listFilesParams(c *gin.Context) (services.ListFilesParams, bool) {
	sortBy, _ := queryAlias(c, "sortBy", "sort_by")
	order, _ := queryAlias(c, "sortOrder", "order")

	params := services.ListFilesParams{
		Deleted: c.Query("deleted") == "true",
		Recent:  c.Query("recent") == "true",
		Search:  c.Query("search"),
		SortBy:  sortBy,
		Order:   order,
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if limit, ok := queryAlias(c, "limit", "page_size"); ok {
		params.Limit, _ = strconv.Atoi(limit)
	}

	if starred := c.Query("starred"); starred != "" {
		v := starred == "true"
		params.Starred = &v
	}
	if parent, ok := queryAlias(c, "parentId", "parent_id"); ok {
		params.ParentSet = true
		if parent != "" && parent != "root" {
			parentID, err := parseOptionalUint(parent)
			if err != nil {
				utils.Error(c, http.StatusBadRequest, "invalid parentId")
				return params, false
			}
			params.ParentID = parentID
		}
	}
	return params, true
}

func ListFiles(c *gin.Context) {
	userID := c.GetUint("user_id")

	params, ok := listFilesParams(c)
	if !ok {
		return
	}

	out, err := getServices().File.ListFiles(c.Request.Context(), userID, params)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

type CreateFolderRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	ParentID *uint  `json:"parent_id"`
}

func CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	folder, err := getServices().File.CreateFolder(c.Request.Context(), c.GetUint("user_id"), req.Name, req.ParentID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, folder)
}

type PatchFileRequest struct {
	Name       *string `json:"name"`
	ParentID   *uint   `json:"parent_id"`
	MoveToRoot bool    `json:"move_to_root"`
	Starred    *bool   `json:"starred"`
}

func PatchFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	var req PatchFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	file, err := getServices().File.PatchFile(c.Request.Context(), c.GetUint("user_id"), fileID, services.PatchFileInput{
		Name:       req.Name,
		ParentID:   req.ParentID,
		MoveToRoot: req.MoveToRoot,
		Starred:    req.Starred,
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, file)
}

func DeleteFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if c.Query("permanent") == "true" {
		if err := getServices().File.PermanentDelete(c.Request.Context(), c.GetUint("user_id"), fileID); respondServiceError(c, err) {
			return
		}
		utils.Success(c, gin.H{"message": "file deleted permanently"})
		return
	}

	if err := getServices().File.SoftDelete(c.Request.Context(), c.GetUint("user_id"), fileID); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "file moved to trash"})
}

func PermanentDeleteFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := getServices().File.PermanentDelete(c.Request.Context(), c.GetUint("user_id"), fileID); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "file deleted permanently"})
}

func RestoreFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := getServices().File.Restore(c.Request.Context(), c.GetUint("user_id"), fileID); respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"message": "file restored"})
}

func DownloadFile(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	url, err := getServices().File.GetDownloadURL(c.Request.Context(), c.GetUint("user_id"), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"download_url": url})
}

func GetThumbnail(c *gin.Context) {
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	url, err := getServices().File.GetThumbnailURL(c.Request.Context(), c.GetUint("user_id"), fileID)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"thumbnail_url": url})
}
