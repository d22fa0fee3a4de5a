package rpc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/protocol"
	"github.com/mohitkumar/mqueue/readonly"
	"go.uber.org/zap"
)

type readonlyHandler struct {
	m *readonly.ReadonlyManager
}

// NewReadonlyHandler returns the HTTP API of a read-only manager, including the sync routes
// the primary pushes metadata through.
func NewReadonlyHandler(m *readonly.ReadonlyManager, logger *zap.Logger) http.Handler {
	h := &readonlyHandler{m: m}
	r := newEngine("readonly", logger, m.Metrics)
	r.GET("/topics", h.listTopics)
	r.GET("/consumer/consume", h.consume)
	r.GET("/size", h.size)
	r.POST("/sync/topics", h.syncTopic)
	r.POST("/sync/consumers", h.syncConsumer)
	return r
}

func (h *readonlyHandler) listTopics(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.TopicsResponse[string]{Result: protocol.Success(), Topics: h.m.Directory().Topics()})
}

func (h *readonlyHandler) consume(c *gin.Context) {
	var req protocol.ConsumeRequest
	if err := bind(c, protocol.ConsumeSchema, &req); err != nil {
		fail(c, err)
		return
	}
	msg, p, err := h.m.Consume(c.Request.Context(), req.Topic, req.ConsumerID, req.PartitionNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.ConsumeResponse{
		Result:          protocol.Result{Status: protocol.StatusSuccess, Message: msg},
		PartitionNumber: &p,
	})
}

func (h *readonlyHandler) size(c *gin.Context) {
	var req protocol.ConsumeRequest
	if err := bind(c, protocol.ConsumeSchema, &req); err != nil {
		fail(c, err)
		return
	}
	n, err := h.m.Size(c.Request.Context(), req.Topic, req.ConsumerID, req.PartitionNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.SizeResponse{Result: protocol.Success(), Size: n})
}

func (h *readonlyHandler) syncTopic(c *gin.Context) {
	var req protocol.SyncTopicRequest
	if err := bind(c, protocol.SyncTopicSchema, &req); err != nil {
		fail(c, err)
		return
	}
	if _, err := h.m.Directory().SyncAddTopic(req.Name, req.PartitionCount, req.BrokerList); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *readonlyHandler) syncConsumer(c *gin.Context) {
	var req protocol.SyncConsumerRequest
	if err := bind(c, protocol.SyncConsumerSchema, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.m.Directory().SyncAddConsumer(req.Topic, req.ConsumerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}
