package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/index"
)

const (
	stateRunning  = "running"
	stateComplete = "complete"
	stateFailed   = "failed"
)

type IndexService interface {
	Build(requestID string) error
	GetStatus(requestID string) (int, error)
	GetMetadata() (*kvdb.IndexMetadata, error)
}

type IndexResponse struct {
	ID string `json:"id"`
}

type IndexStatusResponse struct {
	ID       string `json:"id"`
	Progress int    `json:"progress"`
	State    string `json:"state"`
}

func SetupIndex(router gin.IRoutes, logger logger.Logger, indexService IndexService) {
	router.POST("/index", handleCreateIndex(indexService, logger))
	router.GET("/index", handleGetIndexMetadata(indexService, logger))
	router.GET("/index/:id", handleGetIndexStatus(indexService, logger))
}

func handleCreateIndex(indexService IndexService, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()

		if err := indexService.Build(requestID); err != nil {
			c.Abort()
			if errors.Is(err, index.ErrIndexingInProgress) {
				writeResponse(c, nil, http.StatusConflict, []string{err.Error()})
				return
			}
			logger.Error("could not start rebuilding index", "request_id", requestID, "err", err.Error())
			writeResponse(c, nil, http.StatusInternalServerError, []string{"could not start rebuilding index"})
			return
		}

		writeResponse(c, IndexResponse{ID: requestID}, http.StatusAccepted, nil)
	}
}

func handleGetIndexStatus(indexService IndexService, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")

		progress, err := indexService.GetStatus(requestID)
		if err != nil {
			c.Abort()
			if errors.Is(err, kvdb.ErrNotFound) || errors.Is(err, kvdb.ErrInvalidKey) {
				writeResponse(c, nil, http.StatusNotFound, []string{"index request not found"})
				return
			}
			logger.Error("could not get index status", "request_id", requestID, "err", err.Error())
			writeResponse(c, nil, http.StatusInternalServerError, []string{"could not get index status"})
			return
		}

		statusResponse := IndexStatusResponse{ID: requestID, Progress: progress, State: stateRunning}
		switch progress {
		case index.ProgressStatusComplete:
			statusResponse.State = stateComplete
		case index.ProgressStatusFailed:
			statusResponse.State = stateFailed
		default:
			writeResponse(c, statusResponse, http.StatusAccepted, nil)
			return
		}

		writeResponse(c, statusResponse, http.StatusOK, nil)
	}
}

func handleGetIndexMetadata(indexService IndexService, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		metadata, err := indexService.GetMetadata()
		if err != nil {
			c.Abort()
			if errors.Is(err, kvdb.ErrNotFound) {
				writeResponse(c, nil, http.StatusNotFound, []string{"index has not been built yet"})
				return
			}
			logger.Error("could not get index metadata", "err", err.Error())
			writeResponse(c, nil, http.StatusInternalServerError, []string{"could not get index metadata"})
			return
		}

		writeResponse(c, metadata, http.StatusOK, nil)
	}
}
