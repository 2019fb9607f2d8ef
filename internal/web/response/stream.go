package response

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Streamer writes a response incrementally, flushing after each item
type Streamer struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewStreamer creates a new response streamer
func NewStreamer(w http.ResponseWriter) (*Streamer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &Streamer{
		writer:  w,
		flusher: flusher,
	}, nil
}

// StreamJSON streams JSON objects one per line (JSON Lines)
func (s *Streamer) StreamJSON(objects <-chan interface{}) error {
	s.writer.Header().Set("Content-Type", "application/x-ndjson")
	s.writer.Header().Set("X-Content-Type-Options", "nosniff")
	s.writer.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(s.writer)
	for obj := range objects {
		if err := encoder.Encode(obj); err != nil {
			// drain so the producer is never blocked
			for range objects {
			}
			return fmt.Errorf("failed to encode object: %w", err)
		}
		s.flusher.Flush()
	}

	return nil
}
