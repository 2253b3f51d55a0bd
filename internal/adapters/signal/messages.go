package signal

import (
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Broadcast/internal/domain"
)

// Inbound messages are discriminated by the "id" field.
const (
	msgPresenter      = "presenter"
	msgViewer         = "viewer"
	msgStop           = "stop"
	msgOnIceCandidate = "onIceCandidate"
	msgRecord         = "record"
	msgStopRecord     = "stopRecord"
)

type inboundMessage struct {
	ID        string                   `json:"id"`
	SDPOffer  string                   `json:"sdpOffer,omitempty"`
	Type      string                   `json:"type,omitempty"`
	Room      string                   `json:"room,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

const (
	responseAccepted = "accepted"
	responseRejected = "rejected"
)

// negotiationResponse answers presenter/viewer/record/stopRecord requests.
type negotiationResponse struct {
	ID        string `json:"id"`
	Response  string `json:"response"`
	SDPAnswer string `json:"sdpAnswer,omitempty"`
	Message   string `json:"message,omitempty"`
}

type candidateEvent struct {
	ID        string                  `json:"id"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type stopCommunicationEvent struct {
	ID   string          `json:"id"`
	Room domain.RoomName `json:"room,omitempty"`
}

type errorEvent struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
