package rpc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/primary"
	"github.com/mohitkumar/mqueue/protocol"
	"go.uber.org/zap"
)

type primaryHandler struct {
	m *primary.DataManager
}

// NewPrimaryHandler returns the HTTP API of the primary manager.
func NewPrimaryHandler(m *primary.DataManager, logger *zap.Logger) http.Handler {
	h := &primaryHandler{m: m}
	r := newEngine("primary", logger, m.Metrics)
	r.GET("/topics", h.listTopics)
	r.POST("/topics", h.createTopic)
	r.POST("/producer/register", h.registerProducer)
	r.POST("/consumer/register", h.registerConsumer)
	r.POST("/producer/produce", h.produce)

	admin := r.Group("/admin/brokers")
	admin.GET("", h.listBrokers)
	admin.POST("", h.addBroker)
	admin.DELETE("/:host", h.removeBroker)
	admin.POST("/:host/activate", h.activateBroker)
	admin.POST("/:host/deactivate", h.deactivateBroker)
	return r
}

func (h *primaryHandler) listTopics(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.TopicsResponse[primary.TopicInfo]{
		Result: protocol.Success(),
		Topics: h.m.Directory().Topics(),
	})
}

func (h *primaryHandler) createTopic(c *gin.Context) {
	var req protocol.CreateTopicRequest
	if err := bind(c, protocol.CreateTopicSchema, &req); err != nil {
		fail(c, err)
		return
	}
	n := h.m.DefaultPartitions
	if req.NumberOfPartitions != nil {
		n = *req.NumberOfPartitions
	}
	hosts, err := h.m.CreateTopic(c.Request.Context(), req.Name, n)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.CreateTopicResponse{Result: protocol.Success(), BrokerList: hosts})
}

func (h *primaryHandler) registerProducer(c *gin.Context) {
	var req protocol.RegisterRequest
	if err := bind(c, protocol.RegisterSchema, &req); err != nil {
		fail(c, err)
		return
	}
	id, n, err := h.m.RegisterProducer(c.Request.Context(), req.Topic)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.RegisterProducerResponse{Result: protocol.Success(), ProducerID: id, PartitionCount: n})
}

func (h *primaryHandler) registerConsumer(c *gin.Context) {
	var req protocol.RegisterRequest
	if err := bind(c, protocol.RegisterSchema, &req); err != nil {
		fail(c, err)
		return
	}
	id, n, err := h.m.RegisterConsumer(c.Request.Context(), req.Topic)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.RegisterConsumerResponse{Result: protocol.Success(), ConsumerID: id, PartitionCount: n})
}

func (h *primaryHandler) produce(c *gin.Context) {
	var req protocol.ProduceRequest
	if err := bind(c, protocol.ProduceSchema, &req); err != nil {
		fail(c, err)
		return
	}
	p, err := h.m.Produce(c.Request.Context(), req.Topic, req.ProducerID, req.Message, req.PartitionNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.ProduceResponse{Result: protocol.Success(), PartitionNumber: p})
}

func (h *primaryHandler) listBrokers(c *gin.Context) {
	active, inactive := h.m.Directory().BrokerLoads()
	c.JSON(http.StatusOK, protocol.BrokersResponse{Result: protocol.Success(), Active: active, Inactive: inactive})
}

func (h *primaryHandler) addBroker(c *gin.Context) {
	var req protocol.BrokerHostRequest
	if err := bind(c, protocol.BrokerHostSchema, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.m.AddBroker(c.Request.Context(), req.BrokerHost); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *primaryHandler) removeBroker(c *gin.Context) {
	if err := h.m.RemoveBroker(c.Request.Context(), c.Param("host")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *primaryHandler) activateBroker(c *gin.Context) {
	if err := h.m.ActivateBroker(c.Request.Context(), c.Param("host")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *primaryHandler) deactivateBroker(c *gin.Context) {
	if err := h.m.DeactivateBroker(c.Request.Context(), c.Param("host")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}
