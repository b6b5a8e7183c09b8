package http

import (
	"github.com/gin-gonic/gin"

	"publisher/usecase"
)

type IMetricsHandler interface {
	QueueMetrics(c *gin.Context)
}

type MetricsHandler struct {
	metricsUsecase usecase.IQueueMetricsUsecase
}

func NewMetricsHandler(metricsUsecase usecase.IQueueMetricsUsecase) IMetricsHandler {
	return &MetricsHandler{metricsUsecase: metricsUsecase}
}

func (h *MetricsHandler) QueueMetrics(c *gin.Context) {
	snap, err := h.metricsUsecase.GetAllQueueMetrics()
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, snap)
}
