package httptransport

import "github.com/gin-gonic/gin"

// ErrorResponse 所有失败响应的 JSON 结构
type ErrorResponse struct {
	Error string `json:"error" example:"Failed to analyze image"`
}

// RespondError 返回 {"error": message}
func RespondError(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: message})
}

// RespondJSON 返回成功的 JSON 响应
func RespondJSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}
