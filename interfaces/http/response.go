package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"publisher/domain/apperrors"
	"publisher/domain/dto"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: data})
}

// writeError maps the usecase error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, dto.Res{
			ResponseCode: "400", ResponseMessage: err.Error(),
		})
	case apperrors.IsAuthorization(err):
		c.JSON(http.StatusForbidden, dto.Res{
			ResponseCode: "403", ResponseMessage: err.Error(),
		})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, dto.Res{
			ResponseCode: "404", ResponseMessage: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.Res{
			ResponseCode: "500", ResponseMessage: "Internal Server Error",
		})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: msg})
}
