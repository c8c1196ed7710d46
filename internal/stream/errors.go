package stream

import "errors"

// ErrInvalidFilter is returned when a StreamDataRequest's filter cannot be
// decoded or names an unsupported kind. internal/streamservice maps this to
// codes.InvalidArgument.
var ErrInvalidFilter = errors.New("stream: invalid filter")

// ErrResourceExhausted is returned when a stream must be terminated because
// it exceeded its backpressure budget (MaxLagBlocks/MaxLagBytes) or its
// Quota capability reported it over budget. internal/streamservice maps
// this to codes.ResourceExhausted.
var ErrResourceExhausted = errors.New("stream: resource exhausted")

// ErrIdleTimeout is the idle-stream error internal/streamservice maps to
// codes.DeadlineExceeded. Engine.Run does not return it: StreamConfig's
// IdleTimeoutMs is not enforced by the engine.
var ErrIdleTimeout = errors.New("stream: idle timeout")

// ErrSuperseded names the case of a request replaced by a newer
// StreamDataRequest on the same logical channel. Engine.Run does not return
// it: a newer request restarts the handshake within the same Run call.
var ErrSuperseded = errors.New("stream: superseded by newer request")
