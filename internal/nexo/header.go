package nexo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ProtocolVersion is the terminal API protocol version sent in every
// MessageHeader. The terminal rejects messages with any other value.
const ProtocolVersion = "3.0"

// serviceIDLength is the maximum length the terminal accepts for a
// ServiceID. UUIDs are truncated to fit.
const serviceIDLength = 10

// MessageClass classifies a message by the kind of exchange it belongs to.
type MessageClass string

const (
	MessageClassService MessageClass = "Service"
	MessageClassDevice  MessageClass = "Device"
	MessageClassEvent   MessageClass = "Event"
)

// MessageCategory identifies the business operation a message carries.
type MessageCategory string

const (
	CategoryPayment           MessageCategory = "Payment"
	CategoryAbort             MessageCategory = "Abort"
	CategoryTransactionStatus MessageCategory = "TransactionStatus"
	CategoryDiagnosis         MessageCategory = "Diagnosis"
)

// MessageType distinguishes requests, responses and unsolicited notifications.
type MessageType string

const (
	MessageTypeRequest      MessageType = "Request"
	MessageTypeResponse     MessageType = "Response"
	MessageTypeNotification MessageType = "Notification"
)

// MessageHeader is the protocol metadata accompanying every message.
//
// The ServiceID correlates a request with its response: the terminal
// echoes the request's ServiceID in the response header. SaleID and
// POIID identify the sale system and the physical terminal.
type MessageHeader struct {
	ProtocolVersion string          `json:"ProtocolVersion"`
	MessageClass    MessageClass    `json:"MessageClass"`
	MessageCategory MessageCategory `json:"MessageCategory"`
	MessageType     MessageType     `json:"MessageType"`
	ServiceID       string          `json:"ServiceID"`
	SaleID          string          `json:"SaleID"`
	POIID           string          `json:"POIID"`
}

// NewServiceHeader builds a request header for a service exchange with a
// freshly generated ServiceID.
func NewServiceHeader(category MessageCategory, saleID, poiID string) MessageHeader {
	return MessageHeader{
		ProtocolVersion: ProtocolVersion,
		MessageClass:    MessageClassService,
		MessageCategory: category,
		MessageType:     MessageTypeRequest,
		ServiceID:       NewServiceID(),
		SaleID:          saleID,
		POIID:           poiID,
	}
}

// NewServiceID generates a fresh ServiceID within the protocol's length limit.
func NewServiceID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:serviceIDLength]
}

// Validate checks that all required header fields are present.
func (h *MessageHeader) Validate() error {
	if h.ProtocolVersion != ProtocolVersion {
		return fmt.Errorf("ProtocolVersion must be %q, got %q", ProtocolVersion, h.ProtocolVersion)
	}
	if h.MessageClass == "" {
		return fmt.Errorf("MessageClass is required")
	}
	if h.MessageCategory == "" {
		return fmt.Errorf("MessageCategory is required")
	}
	if h.MessageType == "" {
		return fmt.Errorf("MessageType is required")
	}
	if h.ServiceID == "" {
		return fmt.Errorf("ServiceID is required")
	}
	if h.SaleID == "" {
		return fmt.Errorf("SaleID is required")
	}
	if h.POIID == "" {
		return fmt.Errorf("POIID is required")
	}
	return nil
}

// AsResponse returns a copy of the header rewritten as the header of the
// paired response. The ServiceID is kept so the caller can correlate.
func (h MessageHeader) AsResponse() MessageHeader {
	h.MessageType = MessageTypeResponse
	return h
}
