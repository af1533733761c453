package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/jobboard-messaging/pkg/errors"
	"github.com/jwalitptl/jobboard-messaging/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the window a list response covers.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

func NewErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}

// RespondWithSuccess sends a 200 success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

// RespondWithStatus sends a success response with a specific status.
func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithPagination sends a list together with its window.
func RespondWithPagination(c *gin.Context, data interface{}, limit, offset, count int) {
	c.JSON(http.StatusOK, &Response{
		Status:     "success",
		Data:       data,
		Pagination: &Pagination{Limit: limit, Offset: offset, Count: count},
	})
}

// RespondWithError renders err and aborts the chain. Internal details of
// unexpected errors never reach the client.
func RespondWithError(c *gin.Context, err error) {
	status, message := StatusAndMessage(err)
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// StatusAndMessage maps err onto an HTTP status and a client-safe message.
func StatusAndMessage(err error) (int, string) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode(), appErr.Message
	}
	var verr *validator.ValidationError
	if stderrors.As(validator.Translate(err), &verr) {
		return http.StatusBadRequest, verr.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// BindError converts a request binding failure into a bad request.
func BindError(err error) error {
	var verr *validator.ValidationError
	if stderrors.As(validator.Translate(err), &verr) {
		return errors.BadRequest(verr.Error(), err)
	}
	return errors.BadRequest("invalid request body", err)
}
