package nexo

// types.go models the plaintext message bodies exchanged with the
// terminal. The pipeline treats these as opaque typed payloads: it only
// requires that every message carries a MessageHeader and that exactly
// one body variant is set per message.

import (
	"fmt"
)

// Result is the outcome reported by the terminal for an exchange.
type Result string

const (
	ResultSuccess Result = "Success"
	ResultFailure Result = "Failure"
	ResultPartial Result = "Partial"
)

// Response is the common outcome block carried by every typed response.
type Response struct {
	Result             Result `json:"Result"`
	ErrorCondition     string `json:"ErrorCondition,omitempty"`
	AdditionalResponse string `json:"AdditionalResponse,omitempty"`
}

// SaleData identifies the sale-system side of a transaction.
type SaleData struct {
	SaleTransactionID TransactionID `json:"SaleTransactionID"`
}

// TransactionID pairs an identifier with the moment it was assigned.
type TransactionID struct {
	TransactionID string   `json:"TransactionID"`
	TimeStamp     DateTime `json:"TimeStamp"`
}

// AmountsReq is the requested amount of a payment.
type AmountsReq struct {
	Currency        string  `json:"Currency"`
	RequestedAmount float64 `json:"RequestedAmount"`
}

// AmountsResp is the authorized amount reported by the terminal.
type AmountsResp struct {
	Currency         string  `json:"Currency"`
	AuthorizedAmount float64 `json:"AuthorizedAmount"`
}

// PaymentTransaction carries the amounts of a payment request.
type PaymentTransaction struct {
	AmountsReq AmountsReq `json:"AmountsReq"`
}

// PaymentRequest asks the terminal to run a payment.
type PaymentRequest struct {
	SaleData           SaleData           `json:"SaleData"`
	PaymentTransaction PaymentTransaction `json:"PaymentTransaction"`
}

// PaymentResult reports the completed payment back to the sale system.
type PaymentResult struct {
	AmountsResp AmountsResp `json:"AmountsResp"`
}

// PaymentResponse is the terminal's answer to a PaymentRequest.
type PaymentResponse struct {
	Response      Response       `json:"Response"`
	SaleData      SaleData       `json:"SaleData"`
	POIData       POIData        `json:"POIData"`
	PaymentResult *PaymentResult `json:"PaymentResult,omitempty"`
}

// POIData identifies the terminal side of a completed transaction.
type POIData struct {
	POITransactionID TransactionID `json:"POITransactionID"`
}

// MessageReference points at an earlier exchange, e.g. the payment an
// abort should cancel.
type MessageReference struct {
	MessageCategory MessageCategory `json:"MessageCategory"`
	ServiceID       string          `json:"ServiceID"`
	SaleID          string          `json:"SaleID,omitempty"`
	POIID           string          `json:"POIID,omitempty"`
}

// AbortRequest asks the terminal to cancel an in-progress exchange.
type AbortRequest struct {
	MessageReference MessageReference `json:"MessageReference"`
	AbortReason      string           `json:"AbortReason"`
}

// AbortResponse acknowledges an AbortRequest.
type AbortResponse struct {
	Response Response `json:"Response"`
}

// TransactionStatusRequest asks for the outcome of an earlier exchange.
type TransactionStatusRequest struct {
	MessageReference *MessageReference `json:"MessageReference,omitempty"`
}

// RepeatedMessageResponse carries the replayed response of the exchange
// a TransactionStatusRequest asked about.
type RepeatedMessageResponse struct {
	MessageHeader   MessageHeader    `json:"MessageHeader"`
	PaymentResponse *PaymentResponse `json:"PaymentResponse,omitempty"`
}

// TransactionStatusResponse is the terminal's answer to a TransactionStatusRequest.
type TransactionStatusResponse struct {
	Response                Response                 `json:"Response"`
	MessageReference        *MessageReference        `json:"MessageReference,omitempty"`
	RepeatedMessageResponse *RepeatedMessageResponse `json:"RepeatedMessageResponse,omitempty"`
}

// DiagnosisRequest asks the terminal for its current state.
type DiagnosisRequest struct {
	HostDiagnosisFlag bool `json:"HostDiagnosisFlag,omitempty"`
}

// DiagnosisResponse reports the terminal's state.
type DiagnosisResponse struct {
	Response  Response   `json:"Response"`
	POIStatus *POIStatus `json:"POIStatus,omitempty"`
}

// POIStatus describes the operational state of the terminal.
type POIStatus struct {
	GlobalStatus string `json:"GlobalStatus"`
}

// SaleToPOIRequest is the plaintext request envelope. Exactly one body
// variant must be set and it must match the header's MessageCategory.
type SaleToPOIRequest struct {
	MessageHeader            MessageHeader             `json:"MessageHeader"`
	PaymentRequest           *PaymentRequest           `json:"PaymentRequest,omitempty"`
	AbortRequest             *AbortRequest             `json:"AbortRequest,omitempty"`
	TransactionStatusRequest *TransactionStatusRequest `json:"TransactionStatusRequest,omitempty"`
	DiagnosisRequest         *DiagnosisRequest         `json:"DiagnosisRequest,omitempty"`
}

// SaleToPOIResponse is the plaintext response envelope, symmetric with
// SaleToPOIRequest.
type SaleToPOIResponse struct {
	MessageHeader             MessageHeader              `json:"MessageHeader"`
	PaymentResponse           *PaymentResponse           `json:"PaymentResponse,omitempty"`
	AbortResponse             *AbortResponse             `json:"AbortResponse,omitempty"`
	TransactionStatusResponse *TransactionStatusResponse `json:"TransactionStatusResponse,omitempty"`
	DiagnosisResponse         *DiagnosisResponse         `json:"DiagnosisResponse,omitempty"`
}

// NewPaymentRequest builds a payment request envelope with a fresh
// header and transaction timestamp.
func NewPaymentRequest(saleID, poiID, transactionID string, amount float64, currency string) *SaleToPOIRequest {
	return &SaleToPOIRequest{
		MessageHeader: NewServiceHeader(CategoryPayment, saleID, poiID),
		PaymentRequest: &PaymentRequest{
			SaleData: SaleData{
				SaleTransactionID: TransactionID{
					TransactionID: transactionID,
					TimeStamp:     Now(),
				},
			},
			PaymentTransaction: PaymentTransaction{
				AmountsReq: AmountsReq{
					Currency:        currency,
					RequestedAmount: amount,
				},
			},
		},
	}
}

// NewAbortRequest builds an abort envelope cancelling the exchange
// identified by serviceID.
func NewAbortRequest(saleID, poiID, serviceID, reason string) *SaleToPOIRequest {
	return &SaleToPOIRequest{
		MessageHeader: NewServiceHeader(CategoryAbort, saleID, poiID),
		AbortRequest: &AbortRequest{
			MessageReference: MessageReference{
				MessageCategory: CategoryPayment,
				ServiceID:       serviceID,
				SaleID:          saleID,
				POIID:           poiID,
			},
			AbortReason: reason,
		},
	}
}

// NewTransactionStatusRequest builds a status query for the exchange
// identified by serviceID. An empty serviceID asks for the last exchange.
func NewTransactionStatusRequest(saleID, poiID, serviceID string) *SaleToPOIRequest {
	req := &SaleToPOIRequest{
		MessageHeader:            NewServiceHeader(CategoryTransactionStatus, saleID, poiID),
		TransactionStatusRequest: &TransactionStatusRequest{},
	}
	if serviceID != "" {
		req.TransactionStatusRequest.MessageReference = &MessageReference{
			MessageCategory: CategoryPayment,
			ServiceID:       serviceID,
		}
	}
	return req
}

// NewDiagnosisRequest builds a diagnosis envelope.
func NewDiagnosisRequest(saleID, poiID string) *SaleToPOIRequest {
	return &SaleToPOIRequest{
		MessageHeader:    NewServiceHeader(CategoryDiagnosis, saleID, poiID),
		DiagnosisRequest: &DiagnosisRequest{},
	}
}

// Validate checks the header and that exactly one body variant matching
// the header's MessageCategory is set.
func (r *SaleToPOIRequest) Validate() error {
	if err := r.MessageHeader.Validate(); err != nil {
		return fmt.Errorf("MessageHeader: %w", err)
	}
	if r.MessageHeader.MessageType != MessageTypeRequest {
		return fmt.Errorf("MessageType must be %q, got %q", MessageTypeRequest, r.MessageHeader.MessageType)
	}

	set := map[MessageCategory]bool{
		CategoryPayment:           r.PaymentRequest != nil,
		CategoryAbort:             r.AbortRequest != nil,
		CategoryTransactionStatus: r.TransactionStatusRequest != nil,
		CategoryDiagnosis:         r.DiagnosisRequest != nil,
	}
	return validateBody(r.MessageHeader.MessageCategory, set)
}

// Validate checks the header and that exactly one body variant matching
// the header's MessageCategory is set.
func (r *SaleToPOIResponse) Validate() error {
	if err := r.MessageHeader.Validate(); err != nil {
		return fmt.Errorf("MessageHeader: %w", err)
	}
	if r.MessageHeader.MessageType != MessageTypeResponse {
		return fmt.Errorf("MessageType must be %q, got %q", MessageTypeResponse, r.MessageHeader.MessageType)
	}

	set := map[MessageCategory]bool{
		CategoryPayment:           r.PaymentResponse != nil,
		CategoryAbort:             r.AbortResponse != nil,
		CategoryTransactionStatus: r.TransactionStatusResponse != nil,
		CategoryDiagnosis:         r.DiagnosisResponse != nil,
	}
	return validateBody(r.MessageHeader.MessageCategory, set)
}

func validateBody(category MessageCategory, set map[MessageCategory]bool) error {
	count := 0
	for _, present := range set {
		if present {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("exactly one message body must be set, got %d", count)
	}
	if !set[category] {
		return fmt.Errorf("message body does not match MessageCategory %q", category)
	}
	return nil
}
