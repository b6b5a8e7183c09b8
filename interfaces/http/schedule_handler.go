package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"publisher/domain/dto"
	"publisher/infrastructure/logger"
	"publisher/usecase"
)

type IScheduleHandler interface {
	Schedule(c *gin.Context)
	ScheduleBulk(c *gin.Context)
	Cancel(c *gin.Context)
	JobState(c *gin.Context)
}

type ScheduleHandler struct {
	schedulerUsecase usecase.ISchedulerUsecase
}

func NewScheduleHandler(schedulerUsecase usecase.ISchedulerUsecase) IScheduleHandler {
	return &ScheduleHandler{schedulerUsecase: schedulerUsecase}
}

func (h *ScheduleHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("malformed schedule request")
		badRequest(c, "malformed request: "+err.Error())
		return
	}
	userID := c.GetString("user_id")

	resp, err := h.schedulerUsecase.SchedulePost(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, resp)
}

func (h *ScheduleHandler) ScheduleBulk(c *gin.Context) {
	var req dto.BulkScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err.Error()).Warn("malformed bulk schedule request")
		badRequest(c, "malformed request: "+err.Error())
		return
	}
	userID := c.GetString("user_id")

	results, err := h.schedulerUsecase.ScheduleBulk(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, results)
}

func (h *ScheduleHandler) Cancel(c *gin.Context) {
	jobID := c.Param("jobId")
	userID := c.GetString("user_id")

	if err := h.schedulerUsecase.CancelJob(c.Request.Context(), jobID, userID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"scheduled_job_id": jobID, "status": "CANCELLED"})
}

func (h *ScheduleHandler) JobState(c *gin.Context) {
	jobID := c.Param("jobId")
	userID := c.GetString("user_id")

	state, err := h.schedulerUsecase.GetJobState(c.Request.Context(), jobID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "scheduled job not found: " + jobID})
		return
	}
	ok(c, state)
}
