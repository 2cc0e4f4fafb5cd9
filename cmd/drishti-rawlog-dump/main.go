package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"

	"drishti-go/internal/output"
)

// Dumps records from a capture log. Image messages are summarized; metadata
// messages are pretty-printed in full.
func main() {
	var (
		path  = flag.String("path", "", "Path to a capture .rawlog file")
		limit = flag.Int("limit", 10, "Number of records to dump (0 for all)")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	reader, err := output.OpenRawLog(*path)
	if err != nil {
		log.Fatalf("open capture log: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if *limit > 0 && count >= *limit {
			return
		}
		ts, payload, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalf("read record: %v", err)
		}

		var decoded map[string]any
		if err := cbor.Unmarshal(payload, &decoded); err != nil {
			log.Printf("record %d: CBOR decode error: %v", count, err)
			count++
			continue
		}

		log.Printf("record %d timestamp=%s size=%d", count, ts.Format(time.RFC3339Nano), len(payload))
		if decoded["type"] == "image" {
			fmt.Printf("image seq=%v %vx%v format=%v data=%d bytes\n",
				decoded["seq"], decoded["width"], decoded["height"], decoded["format"], dataLen(decoded["data"]))
		} else {
			normalized := output.NormalizeJSONValue(decoded)
			pretty, err := json.MarshalIndent(normalized, "", "  ")
			if err != nil {
				log.Printf("record %d: JSON encode error: %v", count, err)
				count++
				continue
			}
			fmt.Println(string(pretty))
		}
		count++
	}
}

func dataLen(value any) int {
	switch v := value.(type) {
	case []byte:
		return len(v)
	case cbor.Tag:
		if data, ok := v.Content.([]byte); ok {
			return len(data)
		}
	}
	return 0
}
