package rpc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/broker"
	"github.com/mohitkumar/mqueue/protocol"
	"go.uber.org/zap"
)

type brokerHandler struct {
	b *broker.Broker
}

// NewBrokerHandler returns the HTTP API of a broker.
func NewBrokerHandler(b *broker.Broker, logger *zap.Logger) http.Handler {
	h := &brokerHandler{b: b}
	r := newEngine("broker", logger, b.Metrics)
	r.GET("/topics", h.listTopics)
	r.POST("/topics", h.createPartition)
	r.POST("/producer/register", h.registerProducer)
	r.POST("/consumer/register", h.registerConsumer)
	r.POST("/producer/produce", h.produce)
	r.GET("/consumer/consume", h.consume)
	r.GET("/size", h.size)
	return r
}

func (h *brokerHandler) listTopics(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.TopicsResponse[broker.PartitionRef]{Result: protocol.Success(), Topics: h.b.Partitions()})
}

func (h *brokerHandler) createPartition(c *gin.Context) {
	var req protocol.PartitionRequest
	if err := bind(c, protocol.PartitionSchema, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.b.CreatePartition(c.Request.Context(), req.Name, req.PartitionIndex); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *brokerHandler) registerProducer(c *gin.Context) {
	var req protocol.BrokerRegisterProducerRequest
	if err := bind(c, protocol.BrokerRegisterProducerSchema, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.b.RegisterProducer(c.Request.Context(), req.Topic, req.PartitionIndex, req.ProducerID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *brokerHandler) registerConsumer(c *gin.Context) {
	var req protocol.BrokerRegisterConsumerRequest
	if err := bind(c, protocol.BrokerRegisterConsumerSchema, &req); err != nil {
		fail(c, err)
		return
	}
	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}
	if err := h.b.RegisterConsumer(c.Request.Context(), req.Topic, req.PartitionIndex, req.ConsumerID, offset); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.Success())
}

func (h *brokerHandler) produce(c *gin.Context) {
	var req protocol.BrokerProduceRequest
	if err := bind(c, protocol.BrokerProduceSchema, &req); err != nil {
		fail(c, err)
		return
	}
	off, err := h.b.Produce(req.Topic, req.PartitionIndex, req.ProducerID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.BrokerProduceResponse{Result: protocol.Success(), Offset: off})
}

func (h *brokerHandler) consume(c *gin.Context) {
	var req protocol.ConsumeRequest
	if err := bind(c, protocol.BrokerReadSchema, &req); err != nil {
		fail(c, err)
		return
	}
	msg, err := h.b.Consume(req.Topic, *req.PartitionNumber, req.ConsumerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.ConsumeResponse{Result: protocol.Result{Status: protocol.StatusSuccess, Message: msg}})
}

func (h *brokerHandler) size(c *gin.Context) {
	var req protocol.ConsumeRequest
	if err := bind(c, protocol.BrokerReadSchema, &req); err != nil {
		fail(c, err)
		return
	}
	n, err := h.b.Size(req.Topic, *req.PartitionNumber, req.ConsumerID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.SizeResponse{Result: protocol.Success(), Size: n})
}
