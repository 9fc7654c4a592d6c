package signaling

import "github.com/BioHazard786/SpaceLink/cli/internal/link"

// Endpoint paths relative to the host's base URL.
const (
	PathOffer  = "/session/offer"
	PathAnswer = "/session/answer"
)

// OfferResponse is the body of POST /session/offer.
type OfferResponse struct {
	SessionID string                   `json:"sessionId"`
	Offer     *link.SessionDescription `json:"offer"`
	Error     string                   `json:"error,omitempty"`
}

// AnswerRequest is the body of POST /session/answer.
type AnswerRequest struct {
	SessionID string                  `json:"sessionId"`
	Answer    link.SessionDescription `json:"answer"`
}

// AnswerResponse is the body the host replies to an answer with. Only the
// error field is inspected; an empty body is a success.
type AnswerResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
