package kafka

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = HeaderCarrier{}

// HeaderCarrier lets an OpenTelemetry propagator read and write trace
// context on a message's headers.
type HeaderCarrier struct {
	headers *[]kafka.Header
}

// NewHeaderCarrier wraps headers. Set updates the slice in place.
func NewHeaderCarrier(headers *[]kafka.Header) HeaderCarrier {
	return HeaderCarrier{headers: headers}
}

func (c HeaderCarrier) find(key string) int {
	for i := range *c.headers {
		if (*c.headers)[i].Key == key {
			return i
		}
	}
	return -1
}

func (c HeaderCarrier) Get(key string) string {
	if i := c.find(key); i >= 0 {
		return string((*c.headers)[i].Value)
	}
	return ""
}

func (c HeaderCarrier) Set(key, value string) {
	if i := c.find(key); i >= 0 {
		(*c.headers)[i].Value = []byte(value)
		return
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}
