package ingest

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestDecodeMessageImage(t *testing.T) {
	pix := make([]byte, 4*2*3)
	for i := range pix {
		pix[i] = byte(i)
	}
	msg := map[string]any{
		"type":      "image",
		"seq":       7,
		"timestamp": 1.25,
		"width":     4,
		"height":    2,
		"format":    "bgr8",
		"data":      pix,
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	decoded, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}
	if decoded.Type != "image" {
		t.Fatalf("unexpected type: %q", decoded.Type)
	}
	if decoded.Frame.Seq != 7 {
		t.Fatalf("unexpected seq: %d", decoded.Frame.Seq)
	}
	if decoded.Frame.Timestamp != 1.25 {
		t.Fatalf("unexpected timestamp: %v", decoded.Frame.Timestamp)
	}
	if decoded.Frame.Width != 4 || decoded.Frame.Height != 2 {
		t.Fatalf("unexpected size: %dx%d", decoded.Frame.Width, decoded.Frame.Height)
	}
	if len(decoded.Frame.Pix) != len(pix) || decoded.Frame.Pix[5] != 5 {
		t.Fatalf("unexpected pixel data: %v", decoded.Frame.Pix[:6])
	}
}

func TestDecodeMessageTaggedPixelData(t *testing.T) {
	pix := make([]byte, 2*2*3)
	msg := map[string]any{
		"type":      "image",
		"seq":       1,
		"timestamp": 0.5,
		"width":     2,
		"height":    2,
		"data": cbor.Tag{
			Number:  cborTagUint8,
			Content: pix,
		},
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	decoded, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}
	if len(decoded.Frame.Pix) != len(pix) {
		t.Fatalf("unexpected pixel length: %d", len(decoded.Frame.Pix))
	}
}

func TestDecodeMessageMetadata(t *testing.T) {
	msg := map[string]any{
		"type":   "start",
		"source": "gate-cam-3",
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	decoded, ok := decodeMessage(payload, 1)
	if !ok {
		t.Fatalf("decodeMessage returned ok=false")
	}
	if decoded.Type != "start" {
		t.Fatalf("unexpected type: %q", decoded.Type)
	}
	if decoded.Meta["source"] != "gate-cam-3" {
		t.Fatalf("unexpected meta: %v", decoded.Meta)
	}
}

func TestDecodeMessageRejectsBadBuffer(t *testing.T) {
	msg := map[string]any{
		"type":      "image",
		"seq":       1,
		"timestamp": 0.5,
		"width":     10,
		"height":    10,
		"data":      []byte{1, 2, 3},
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	if _, ok := decodeMessage(payload, 1); ok {
		t.Fatal("undersized pixel buffer was accepted")
	}
}

func TestDecodeMessageRejectsUnknownFormat(t *testing.T) {
	msg := map[string]any{
		"type":      "image",
		"seq":       1,
		"timestamp": 0.5,
		"width":     2,
		"height":    2,
		"format":    "yuv420",
		"data":      make([]byte, 2*2*3),
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	if _, ok := decodeMessage(payload, 1); ok {
		t.Fatal("unknown pixel format was accepted")
	}
}
