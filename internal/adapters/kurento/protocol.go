// Package kurento implements the media engine client over the engine's
// JSON-RPC WebSocket protocol.
package kurento

import "encoding/json"

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// rpcEnvelope is used on the read side to tell responses from server
// notifications apart.
type rpcEnvelope struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type createParams struct {
	Type              string         `json:"type"`
	ConstructorParams map[string]any `json:"constructorParams,omitempty"`
	Properties        map[string]any `json:"properties,omitempty"`
	SessionID         string         `json:"sessionId,omitempty"`
}

type createResult struct {
	Value     string `json:"value"`
	SessionID string `json:"sessionId"`
}

type invokeParams struct {
	Object          string         `json:"object"`
	Operation       string         `json:"operation"`
	OperationParams map[string]any `json:"operationParams,omitempty"`
	SessionID       string         `json:"sessionId,omitempty"`
}

type invokeResult struct {
	Value     json.RawMessage `json:"value"`
	SessionID string          `json:"sessionId"`
}

type releaseParams struct {
	Object    string `json:"object"`
	SessionID string `json:"sessionId,omitempty"`
}

type subscribeParams struct {
	Object    string `json:"object"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

// onEventParams is the payload of the server's "onEvent" notification.
type onEventParams struct {
	Value struct {
		Data   json.RawMessage `json:"data"`
		Object string          `json:"object"`
		Type   string          `json:"type"`
	} `json:"value"`
}

// iceCandidateData is the payload of an OnIceCandidate event.
type iceCandidateData struct {
	Candidate struct {
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	} `json:"candidate"`
}
