package rpc

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/protocol"
)

// StatusFor returns the HTTP status for err. A consumer with nothing to read is not an error
// at the HTTP level and maps to 200.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, errs.ErrNoData):
		return http.StatusOK
	case errors.Is(err, errs.ErrInvalidRequest),
		errors.Is(err, errs.ErrInvalidPartition),
		errors.Is(err, errs.ErrInvalidPartitionCount):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrTopicNotFound),
		errors.Is(err, errs.ErrPartitionNotFound),
		errors.Is(err, errs.ErrBrokerNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrProducerNotRegistered), errors.Is(err, errs.ErrConsumerNotRegistered):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrTopicExists),
		errors.Is(err, errs.ErrBrokerExists),
		errors.Is(err, errs.ErrBrokerStateConflict),
		errors.Is(err, errs.ErrNoActiveBrokers):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the failure message sent to the client.
func MessageFor(err error) string {
	if errors.Is(err, errs.ErrNoData) {
		return protocol.NoDataMessage
	}
	return err.Error()
}

// fail writes the failure envelope for err and records it for the logging middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(err), protocol.Failure(MessageFor(err)))
}
