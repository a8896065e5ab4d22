// Package envelope defines the wire message StreamHandler and
// RequestSender exchange over a broker topic: routing, correlation, and
// payload, plus the helpers to build, parse, and time one.
package envelope

import (
	"encoding/json"
	"time"
)

// MessageType identifies the purpose of an Envelope.
type MessageType string

const (
	Request  MessageType = "REQUEST"
	Response MessageType = "RESPONSE"
	Message  MessageType = "MESSAGE"
)

// ResponseDestination tells the server where to publish a reply.
type ResponseDestination struct {
	Topic string `json:"topic"`
	Uri   string `json:"uri"`
}

// ShouldRespond reports whether both fields are populated — a
// ResponseDestination with either field empty means "no reply".
func (d *ResponseDestination) ShouldRespond() bool {
	return d != nil && d.Topic != "" && d.Uri != ""
}

// Envelope is the JSON message transported over the broker.
type Envelope struct {
	MessageType         MessageType          `json:"messageType"`
	SourceId            string               `json:"sourceId"`
	TransactionId       string               `json:"transactionId"`
	MessageId           string               `json:"messageId"`
	Uri                 string               `json:"uri"`
	ResponseDestination *ResponseDestination `json:"responseDestination"`
	Data                json.RawMessage      `json:"data"`
}

// ShouldRespond reports whether this envelope's responseDestination is live.
func (e *Envelope) ShouldRespond() bool {
	return e.ResponseDestination.ShouldRespond()
}

// ParseFromString attempts to decode a raw payload string into an
// Envelope. On failure it returns nil; the caller treats that as a drop.
func ParseFromString(payload string) *Envelope {
	var e Envelope
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil
	}
	return &e
}

// CreateMessage builds the (topic, envelope) pair used by publishers.
// messageType defaults to MESSAGE when nil.
func CreateMessage(sourceId, messageId, transactionId, topic, uri string, data any, messageType *MessageType, dest *ResponseDestination) (string, *Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", nil, err
	}

	mt := Message
	if messageType != nil {
		mt = *messageType
	}

	return topic, &Envelope{
		MessageType:         mt,
		SourceId:            sourceId,
		TransactionId:       transactionId,
		MessageId:           messageId,
		Uri:                 uri,
		ResponseDestination: dest,
		Data:                raw,
	}, nil
}

// GetDataAs reaches into a successful RESPONSE envelope's data.data field
// and unmarshals it into T, sparing callers the JSON-pointer walk.
func GetDataAs[T any](e *Envelope) (T, error) {
	var zero T
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(e.Data, &wrapper); err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(wrapper.Data, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// GetLatency computes now - createTime in milliseconds, falling back to
// appendTime and then 0 when neither is available. A zero createTime
// signals "not available" the way a broker client surfaces it.
func GetLatency(createTime, appendTime time.Time) int64 {
	now := time.Now()

	if !createTime.IsZero() {
		return now.Sub(createTime).Milliseconds()
	}
	if !appendTime.IsZero() {
		return now.Sub(appendTime).Milliseconds()
	}
	return 0
}

// IsExpired reports whether latencyMs exceeds timeoutSecs, treating a
// non-positive latency (timestamp unavailable) as never expired.
func IsExpired(latencyMs int64, timeoutSecs int64) bool {
	return latencyMs > 0 && latencyMs > timeoutSecs*1000
}

// FormatLatency renders a latency in milliseconds for log lines, the way
// a missing timestamp renders as "N/A" rather than "0ms".
func FormatLatency(latencyMs int64) string {
	if latencyMs == 0 {
		return "N/A"
	}
	return time.Duration(latencyMs * int64(time.Millisecond)).String()
}
