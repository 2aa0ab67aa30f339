// Package replay feeds recorded keypoint frames through a session,
// decoupling the engine from the live pose model and enabling
// deterministic replay-based testing.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/repcoach/repcoach/internal/engine"
	"github.com/repcoach/repcoach/internal/monitoring"
	"github.com/repcoach/repcoach/internal/pose"
)

// Source yields frames in recorded order. NextFrame returns io.EOF when
// the recording is exhausted.
type Source interface {
	NextFrame() (pose.Frame, error)
}

// FileSource reads newline-delimited JSON frames, one pose.Frame per
// line. Blank lines are skipped.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

// NewFileSource opens a JSONL frame recording.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame recording: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &FileSource{f: f, scanner: sc}, nil
}

// NextFrame returns the next recorded frame.
func (s *FileSource) NextFrame() (pose.Frame, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame pose.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			return pose.Frame{}, fmt.Errorf("%w: %v", pose.ErrMalformedFrame, err)
		}
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return pose.Frame{}, err
	}
	return pose.Frame{}, io.EOF
}

// Close releases the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// SliceSource serves an in-memory frame sequence; the test double for
// Source.
type SliceSource struct {
	frames []pose.Frame
	next   int
}

// NewSliceSource wraps recorded frames.
func NewSliceSource(frames []pose.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// NextFrame returns the next frame or io.EOF.
func (s *SliceSource) NextFrame() (pose.Frame, error) {
	if s.next >= len(s.frames) {
		return pose.Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Run drains src through the session in order and returns the final
// summary. Malformed frames are logged and skipped, matching the live
// path; any other source error aborts the run.
func Run(src Source, session *engine.Session) (engine.Summary, error) {
	for {
		frame, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, pose.ErrMalformedFrame) {
				monitoring.Logf("replay: skipping malformed frame: %v", err)
				continue
			}
			return engine.Summary{}, err
		}
		if _, err := session.ProcessFrame(frame); err != nil {
			if errors.Is(err, pose.ErrMalformedFrame) {
				continue
			}
			return engine.Summary{}, err
		}
	}
	return session.Finish(), nil
}
