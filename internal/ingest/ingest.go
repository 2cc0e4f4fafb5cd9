package ingest

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"drishti-go/internal/types"
)

// cborTagUint8 is the RFC 8746 typed-array tag some capture processes wrap
// pixel payloads in.
const cborTagUint8 = 64

// Message is one decoded capture message. Type "image" carries a frame;
// "start" and "end" carry run metadata.
type Message struct {
	Type  string
	Frame types.Frame
	Meta  map[string]any
}

// RawRecorder receives every raw message payload before decoding, for
// capture logs.
type RawRecorder interface {
	Record(payload []byte) error
}

var (
	decodeFailures atomic.Uint64
	decodeCount    atomic.Uint64
	decodeNanos    atomic.Uint64
)

// DecodeFailures returns the number of messages that failed to decode since
// process start.
func DecodeFailures() uint64 {
	return decodeFailures.Load()
}

// DecodeTiming returns the total decode count and cumulative decode time in
// nanoseconds.
func DecodeTiming() (uint64, uint64) {
	return decodeCount.Load(), decodeNanos.Load()
}

// Stream returns a channel of messages from the capture endpoint.
// Expects CBOR messages shaped like:
//
//	{ "type": "image", "seq": <int>, "timestamp": <float>, "width": <int>,
//	  "height": <int>, "format": "bgr8", "data": <bytes> }
//
// plus "start"/"end" metadata messages.
func Stream(ctx context.Context, endpoint string) (<-chan Message, error) {
	return streamWithConfig(ctx, endpoint, 1, nil)
}

func StreamWithLogEvery(ctx context.Context, endpoint string, logEvery int) (<-chan Message, error) {
	return streamWithConfig(ctx, endpoint, logEvery, nil)
}

func StreamWithLogEveryAndRecorder(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan Message, error) {
	return streamWithConfig(ctx, endpoint, logEvery, recorder)
}

func streamWithConfig(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan Message, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}

	out := make(chan Message, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			payload, err := socket.RecvBytes(0)
			if err != nil {
				logEveryN(logEvery, "ingest recv error: %v", err)
				continue
			}
			if recorder != nil {
				if err := recorder.Record(payload); err != nil {
					logEveryN(logEvery, "ingest raw record failed: %v", err)
				}
			}

			msg, ok := decodeMessage(payload, logEvery)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()

	return out, nil
}

func decodeMessage(payload []byte, logEvery int) (Message, bool) {
	start := time.Now()
	defer func() {
		decodeCount.Add(1)
		decodeNanos.Add(uint64(time.Since(start).Nanoseconds()))
	}()

	var decoded map[string]any
	if err := cbor.Unmarshal(payload, &decoded); err != nil {
		decodeFailures.Add(1)
		logEveryN(logEvery, "ingest CBOR decode error: %v", err)
		return Message{}, false
	}

	msgType, _ := decoded["type"].(string)
	if msgType != "image" {
		if msgType == "" {
			msgType = "metadata"
		}
		return Message{Type: msgType, Meta: decoded}, true
	}

	frame, err := decodeFrame(decoded)
	if err != nil {
		decodeFailures.Add(1)
		logEveryN(logEvery, "ingest invalid image message: %v", err)
		return Message{}, false
	}
	return Message{Type: "image", Frame: frame}, true
}

func decodeFrame(decoded map[string]any) (types.Frame, error) {
	seq, err := toInt64(decoded["seq"])
	if err != nil {
		return types.Frame{}, fmt.Errorf("seq: %w", err)
	}
	timestamp, err := toFloat(decoded["timestamp"])
	if err != nil {
		return types.Frame{}, fmt.Errorf("timestamp: %w", err)
	}
	width, err := toInt(decoded["width"])
	if err != nil {
		return types.Frame{}, fmt.Errorf("width: %w", err)
	}
	height, err := toInt(decoded["height"])
	if err != nil {
		return types.Frame{}, fmt.Errorf("height: %w", err)
	}
	if format, ok := decoded["format"].(string); ok && format != "bgr8" {
		return types.Frame{}, fmt.Errorf("unsupported pixel format %q", format)
	}

	pix, err := pixelData(decoded["data"])
	if err != nil {
		return types.Frame{}, err
	}

	frame := types.Frame{
		Seq:       seq,
		Timestamp: timestamp,
		Width:     width,
		Height:    height,
		Pix:       pix,
	}
	if !frame.Valid() {
		return types.Frame{}, fmt.Errorf("pixel buffer length %d does not match %dx%d", len(pix), width, height)
	}
	return frame, nil
}

func pixelData(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case cbor.Tag:
		if v.Number != cborTagUint8 {
			return nil, fmt.Errorf("unsupported data tag %d", v.Number)
		}
		data, ok := v.Content.([]byte)
		if !ok {
			return nil, fmt.Errorf("unsupported data tag content %T", v.Content)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported data field %T", value)
	}
}

func toInt(v any) (int, error) {
	n, err := toInt64(v)
	return int(n), err
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

var logCounter int

func logEveryN(n int, format string, args ...any) {
	logCounter++
	if logCounter%n == 0 {
		log.Printf(format, args...)
	}
}
