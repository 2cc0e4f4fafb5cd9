package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rawLogMagic identifies a capture log file. Each record after the magic is a
// 12-byte little-endian header (uint64 unix-nano timestamp, uint32 payload
// size) followed by the raw message payload.
const rawLogMagic = "DRSHRAW1"

const maxRawRecordBytes = 64 << 20

// RawLogWriter appends raw capture payloads to a per-run log file, so a
// session can be replayed through the pipeline later.
type RawLogWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewRawLogWriter creates <dir>/<runTimestamp>_capture.rawlog.
func NewRawLogWriter(dir, runTimestamp string) (*RawLogWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, runTimestamp+"_capture.rawlog")
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(file)
	if _, err := buf.WriteString(rawLogMagic); err != nil {
		file.Close()
		return nil, err
	}
	return &RawLogWriter{file: file, buf: buf}, nil
}

func (w *RawLogWriter) Record(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var header [12]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := w.buf.Write(header[:]); err != nil {
		return err
	}
	_, err := w.buf.Write(payload)
	return err
}

func (w *RawLogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// RawLogReader iterates the records of a capture log.
type RawLogReader struct {
	r *bufio.Reader
	c io.Closer
}

func OpenRawLog(path string) (*RawLogReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(file)
	magic := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		file.Close()
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != rawLogMagic {
		file.Close()
		return nil, fmt.Errorf("not a capture log: magic %q", magic)
	}
	return &RawLogReader{r: r, c: file}, nil
}

// Next returns the next record's timestamp and payload, or io.EOF at the end
// of the log.
func (r *RawLogReader) Next() (time.Time, []byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return time.Time{}, nil, err
	}

	ts := time.Unix(0, int64(binary.LittleEndian.Uint64(header[0:8])))
	size := binary.LittleEndian.Uint32(header[8:12])
	if size > maxRawRecordBytes {
		return time.Time{}, nil, fmt.Errorf("record size %d exceeds limit", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return time.Time{}, nil, fmt.Errorf("read record payload: %w", err)
	}
	return ts, payload, nil
}

func (r *RawLogReader) Close() error {
	return r.c.Close()
}
