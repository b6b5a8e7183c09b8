package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"publisher/domain/dto"
	"publisher/infrastructure/logger"
	"publisher/usecase"
)

type IPublishHandler interface {
	Publish(c *gin.Context)
	Status(c *gin.Context)
	Rollback(c *gin.Context)
}

type PublishHandler struct {
	publishingUsecase usecase.IPublishingUsecase
}

func NewPublishHandler(publishingUsecase usecase.IPublishingUsecase) IPublishHandler {
	return &PublishHandler{publishingUsecase: publishingUsecase}
}

// Publish triggers an immediate multi-account publish and returns the
// aggregate result, including per-account detail.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("malformed publish request")
		badRequest(c, "malformed request: "+err.Error())
		return
	}
	userID := c.GetString("user_id")

	result, err := h.publishingUsecase.Publish(c.Request.Context(), req.ContentID, req.AccountIDs, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, result)
}

// Status returns every publication for a content item.
func (h *PublishHandler) Status(c *gin.Context) {
	contentID := c.Param("contentId")
	userID := c.GetString("user_id")

	pubs, err := h.publishingUsecase.GetPublishingStatus(c.Request.Context(), contentID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if pubs == nil {
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "content not found: " + contentID})
		return
	}
	ok(c, pubs)
}

// Rollback force-fails publications published within the rollback window and
// reverts the content to DRAFT.
func (h *PublishHandler) Rollback(c *gin.Context) {
	contentID := c.Param("contentId")
	userID := c.GetString("user_id")

	result, err := h.publishingUsecase.Rollback(c.Request.Context(), contentID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, result)
}
