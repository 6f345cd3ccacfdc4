package handler

import (
	"net/http"

	"mtglog/app/logger"
	"mtglog/app/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler 任务查询
type TaskHandler struct {
	log   *logger.Logger
	tasks *service.TaskQueryService
}

func NewTaskHandler(log *logger.Logger, tasks *service.TaskQueryService) *TaskHandler {
	return &TaskHandler{log: log, tasks: tasks}
}

// GetTask GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Stats GET /api/tasks/stats
func (h *TaskHandler) Stats(c *gin.Context) {
	counts, err := h.tasks.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}
