package http

import (
	"crypto/md5"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"publisher/domain/dto"
	"publisher/infrastructure/logger"
	"publisher/usecase"
)

type IUserHandler interface {
	Login(c *gin.Context)
}

type UserHandler struct {
	userUsecase usecase.IUserUsecase
}

func NewUserHandler(userUsecase usecase.IUserUsecase) IUserHandler {
	return &UserHandler{userUsecase: userUsecase}
}

func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("malformed login request")
		badRequest(c, "malformed request: "+err.Error())
		return
	}
	req.Password = fmt.Sprintf("%x", md5.Sum([]byte(req.Password)))

	res := h.userUsecase.Login(c.Request.Context(), req)
	c.JSON(http.StatusOK, res)
}
