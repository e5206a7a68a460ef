// Package ipc implements the daemon's control protocol: one JSON
// object per newline-terminated line over a local unix socket.
package ipc

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Command is the closed set of protocol commands.
type Command string

const (
	CmdPlay    Command = "play"
	CmdPause   Command = "pause"
	CmdStatus  Command = "status"
	CmdEnqueue Command = "enqueue"
	CmdNext    Command = "next"
	CmdList    Command = "list"
	CmdStop    Command = "stop"
)

// Error envelope kinds.
const (
	KindProtocolError = "protocol_error"
	KindAuthError     = "auth_error"
	KindQueueEmpty    = "queue_empty"
	KindAdapterError  = "adapter_error"
	KindInternalError = "internal_error"
)

// Request represents one client request line.
type Request struct {
	Cmd   Command         `json:"cmd"`
	Token string          `json:"token,omitempty"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// ErrorBody is the structured error payload of a failed response.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response represents one server response line.
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// EnqueueArgs are the arguments of the enqueue command.
type EnqueueArgs struct {
	URI string `json:"uri"`
}

// StateData is the success payload of play, pause, next and stop.
type StateData struct {
	State string `json:"state"`
	Track string `json:"track,omitempty"`
}

// StatusData is the success payload of status.
type StatusData struct {
	State    string   `json:"state"`
	Track    string   `json:"track,omitempty"`
	Position *float64 `json:"position,omitempty"` // seconds
	QueueLen int      `json:"queue_len"`
}

// EnqueueData is the success payload of enqueue.
type EnqueueData struct {
	QueueLen int `json:"queue_len"`
}

// ListData is the success payload of list.
type ListData struct {
	Tracks []string `json:"tracks"`
}

func validCommand(c Command) bool {
	switch c {
	case CmdPlay, CmdPause, CmdStatus, CmdEnqueue, CmdNext, CmdList, CmdStop:
		return true
	}
	return false
}

// DecodeRequest parses one protocol line. Malformed JSON and unknown
// or missing commands are rejected; the caller answers with a
// protocol_error and keeps the connection open.
func DecodeRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, errors.Wrap(err, "malformed JSON")
	}
	if req.Cmd == "" {
		return nil, errors.New("missing cmd field")
	}
	if !validCommand(req.Cmd) {
		return nil, errors.Newf("unknown cmd %q", req.Cmd)
	}
	return &req, nil
}

// EncodeRequest serializes a request as one protocol line.
func EncodeRequest(req *Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	return append(b, '\n'), nil
}

// EncodeResponse serializes a response as one protocol line.
func EncodeResponse(resp *Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	return append(b, '\n'), nil
}

// DecodeResponse parses one response line (used by the control tool).
func DecodeResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, errors.Wrap(err, "malformed response")
	}
	return &resp, nil
}

// OkResponse builds a success envelope around data.
func OkResponse(data any) *Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return ErrResponse(KindInternalError, "failed to encode response data")
	}
	return &Response{OK: true, Data: raw}
}

// ErrResponse builds a failure envelope.
func ErrResponse(kind, message string) *Response {
	return &Response{OK: false, Error: &ErrorBody{Kind: kind, Message: message}}
}
