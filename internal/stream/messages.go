package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Inbound message tags. The set is closed; anything else is a protocol
// violation.
const (
	messageSessionStart = "session_start"
	messageStatusUpdate = "status_update"
	messageSessionEnd   = "session_end"
	messagePing         = "ping"
)

// Outbound message tags.
const (
	replySessionStarted = "session_started"
	replySessionEnded   = "session_ended"
	replyPong           = "pong"
	replyError          = "error"
)

// ErrProtocolViolation means a message arrived malformed or in an order the
// protocol forbids. The connection is closed after the error reply.
var ErrProtocolViolation = errors.New("stream: protocol violation")

// inboundEnvelope is the superset of all inbound message shapes; each tag
// validates its own required fields.
type inboundEnvelope struct {
	Type      string   `json:"type"`
	UserID    string   `json:"user_id"`
	IsFocused *bool    `json:"is_focused"`
	Timestamp *float64 `json:"timestamp"`
}

func decodeInbound(raw []byte) (*inboundEnvelope, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed message: %v", ErrProtocolViolation, err)
	}
	switch env.Type {
	case messageSessionStart:
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: session_start requires user_id", ErrProtocolViolation)
		}
		if env.Timestamp == nil {
			return nil, fmt.Errorf("%w: session_start requires timestamp", ErrProtocolViolation)
		}
	case messageStatusUpdate:
		if env.IsFocused == nil {
			return nil, fmt.Errorf("%w: status_update requires is_focused", ErrProtocolViolation)
		}
		if env.Timestamp == nil {
			return nil, fmt.Errorf("%w: status_update requires timestamp", ErrProtocolViolation)
		}
	case messageSessionEnd:
		if env.Timestamp == nil {
			return nil, fmt.Errorf("%w: session_end requires timestamp", ErrProtocolViolation)
		}
	case messagePing:
	case "":
		return nil, fmt.Errorf("%w: missing message type", ErrProtocolViolation)
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", ErrProtocolViolation, env.Type)
	}
	return &env, nil
}

// protocolTime converts the wire's float seconds since epoch to time.Time.
func protocolTime(sec float64) time.Time {
	s, frac := math.Modf(sec)
	return time.Unix(int64(s), int64(frac*float64(time.Second))).UTC()
}

func nowProtocolSeconds(now time.Time) float64 {
	return float64(now.UnixNano()) / float64(time.Second)
}

type sessionStartedReply struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

type sessionDurations struct {
	TotalSeconds     float64 `json:"total_seconds"`
	FocusedSeconds   float64 `json:"focused_seconds"`
	UnfocusedSeconds float64 `json:"unfocused_seconds"`
}

type sessionEndedReply struct {
	Type        string           `json:"type"`
	SessionData sessionDurations `json:"session_data"`
	Timestamp   float64          `json:"timestamp"`
}

type pongReply struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"`
}

type errorReply struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
