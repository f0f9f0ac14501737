// Package stream consumes the server-sent change event stream of a phasetrack API.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dukex/phasetrack/pkg/models"
)

// maxFrameSize bounds a single data line.
const maxFrameSize = 1 << 20

// Reader decodes "data: <json>" frames separated by blank lines. Comment lines and
// fields other than data are ignored.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	return &Reader{scanner: scanner}
}

// Next blocks until a full frame is read. It returns io.EOF when the stream ends
// cleanly and io.ErrUnexpectedEOF when it ends inside a frame.
func (r *Reader) Next() (models.ChangeEvent, error) {
	var data []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}

			var event models.ChangeEvent

			err := json.Unmarshal([]byte(strings.Join(data, "\n")), &event)
			if err != nil {
				return models.ChangeEvent{}, fmt.Errorf("malformed event frame: %w", err)
			}

			return event, nil
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	err := r.scanner.Err()
	if err != nil {
		return models.ChangeEvent{}, err
	}

	if len(data) > 0 {
		return models.ChangeEvent{}, io.ErrUnexpectedEOF
	}

	return models.ChangeEvent{}, io.EOF
}
