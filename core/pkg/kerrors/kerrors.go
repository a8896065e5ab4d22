// Package kerrors is the closed error taxonomy StreamHandler and
// RequestSender convert into wire-level status codes. Unlike framework
// plumbing errors (which wrap with fmt.Errorf), an ErrorKind is the only
// error type allowed to cross into a reply envelope.
package kerrors

import "fmt"

// Code is one of the closed set of wire-level error tokens.
type Code string

const (
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
	CodeUriNotFound         Code = "URI_NOT_FOUND"
	CodeInvalidParameter    Code = "INVALID_PARAMETER"
	CodeFieldRequired       Code = "FIELD_REQUIRED"
	CodeValueInvalid        Code = "VALUE_INVALID"
	CodeTimeoutError        Code = "TIMEOUT_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeObjectNotFound      Code = "OBJECT_NOT_FOUND"
	CodeSecondFactorRequired Code = "SECOND_FACTOR_REQUIRED"
)

// Kind is one of the internal ErrorKind variants. Each variant maps to
// exactly one wire Code.
type Kind int

const (
	InternalServerError Kind = iota
	UriNotFound
	SerializationError
	ConnectionError
	TimeoutError
	ConfigurationError
)

func (k Kind) label() string {
	switch k {
	case InternalServerError:
		return "Internal Server Error"
	case UriNotFound:
		return "Uri not found"
	case SerializationError:
		return "Serialization Error"
	case ConnectionError:
		return "Connection Error"
	case TimeoutError:
		return "Timeout Error"
	case ConfigurationError:
		return "Configuration Error"
	default:
		return "Unknown Error"
	}
}

func (k Kind) code() Code {
	switch k {
	case InternalServerError:
		return CodeInternalServerError
	case UriNotFound:
		return CodeUriNotFound
	case SerializationError:
		return CodeValueInvalid
	case ConnectionError:
		return CodeTimeoutError
	case TimeoutError:
		return CodeTimeoutError
	case ConfigurationError:
		return CodeInvalidParameter
	default:
		return CodeInternalServerError
	}
}

// KafkaError is a concrete error value carrying one of the Kind variants
// and a human-readable detail message.
type KafkaError struct {
	Kind   Kind
	Detail string
}

func (e *KafkaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.label(), e.Detail)
}

// Code returns the wire-level status code this error maps to.
func (e *KafkaError) Code() Code {
	return e.Kind.code()
}

func NewInternalServerError(detail string) *KafkaError {
	return &KafkaError{Kind: InternalServerError, Detail: detail}
}

func NewUriNotFound(uri string) *KafkaError {
	return &KafkaError{Kind: UriNotFound, Detail: uri}
}

func NewSerializationError(detail string) *KafkaError {
	return &KafkaError{Kind: SerializationError, Detail: detail}
}

func NewConnectionError(detail string) *KafkaError {
	return &KafkaError{Kind: ConnectionError, Detail: detail}
}

func NewTimeoutError(detail string) *KafkaError {
	return &KafkaError{Kind: TimeoutError, Detail: detail}
}

func NewConfigurationError(detail string) *KafkaError {
	return &KafkaError{Kind: ConfigurationError, Detail: detail}
}

// Status is the shape embedded in RESPONSE payloads for errors.
type Status struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Response wraps a Status for serialization as an envelope's data field.
type Response struct {
	Status *Status `json:"status"`
	Data   any     `json:"data"`
}

// ToResponse converts the error into the structured Response the wire
// format expects.
func (e *KafkaError) ToResponse() *Response {
	return &Response{
		Status: &Status{
			Code:    e.Code(),
			Message: e.Error(),
			Data:    nil,
		},
		Data: nil,
	}
}

// ToResponseValue converts the error into the bare value StreamHandler
// puts directly into a reply envelope's data field.
func (e *KafkaError) ToResponseValue() any {
	return e.ToResponse()
}
