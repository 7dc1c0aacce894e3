package pion

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"
)

// PlaybackSink consumes the agent's remote audio track.
type PlaybackSink interface {
	Play(track *webrtc.TrackRemote)
	Close() error
}

// DiscardSink drains remote audio so the transport keeps flowing.
type DiscardSink struct {
	mu     sync.Mutex
	closed bool
}

func NewDiscardSink() PlaybackSink {
	return &DiscardSink{}
}

func (s *DiscardSink) Play(track *webrtc.TrackRemote) {
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
			if s.isClosed() {
				return
			}
		}
	}()
}

func (s *DiscardSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *DiscardSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// OggRecorder writes the agent's Opus audio to an Ogg file.
type OggRecorder struct {
	path string

	mu     sync.Mutex
	writer *oggwriter.OggWriter
	closed bool
}

func NewOggRecorder(path string) *OggRecorder {
	return &OggRecorder{path: path}
}

// NewOggRecorderFactory returns a sink factory that records each call to its
// own file: base "calls/agent.ogg" becomes "calls/agent-20261019T150405-123.ogg".
func NewOggRecorderFactory(base string) func() PlaybackSink {
	return func() PlaybackSink {
		return NewOggRecorder(recordingPath(base, time.Now()))
	}
}

func recordingPath(base string, t time.Time) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".ogg"
	}
	return fmt.Sprintf("%s-%s-%03d%s", stem, t.Format("20060102T150405"), t.Nanosecond()/int(time.Millisecond), ext)
}

func (r *OggRecorder) Play(track *webrtc.TrackRemote) {
	if !strings.EqualFold(track.Codec().MimeType, webrtc.MimeTypeOpus) {
		log.Warn().Str("mime", track.Codec().MimeType).Msg("Not recording non-Opus track")
		NewDiscardSink().Play(track)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.writer == nil {
		w, err := oggwriter.New(r.path, 48000, 2)
		if err != nil {
			r.mu.Unlock()
			log.Error().Err(err).Str("path", r.path).Msg("Failed to create recording")
			return
		}
		r.writer = w
	}
	r.mu.Unlock()

	go func() {
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				return
			}
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				return
			}
			if err := r.writer.WriteRTP(pkt); err != nil {
				log.Debug().Err(err).Msg("Recording write failed")
			}
			r.mu.Unlock()
		}
	}()
}

func (r *OggRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil
	if err != nil {
		return fmt.Errorf("close recording: %w", err)
	}
	return nil
}
