package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Respond writes a JSON envelope; status is repeated in the body.
func Respond(ctx *gin.Context, status int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// Success returns a 200 envelope.
func Success(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, 200, message, data)
}

// Error returns an error envelope with no data and stops the handler chain.
func Error(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, JSONResponse{Status: status, Message: message})
}
