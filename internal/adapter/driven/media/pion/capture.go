package pion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"
)

const opusFrameDuration = 20 * time.Millisecond

// A single Opus TOC byte plus an empty frame; decoders render it as silence.
var opusSilenceFrame = []byte{0xf8, 0xff, 0xfe}

// CaptureConstraints mirror the processing applied to a voice microphone.
type CaptureConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

var VoiceConstraints = CaptureConstraints{
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGainControl:  true,
}

// AudioSource opens the local microphone.
type AudioSource interface {
	Open(ctx context.Context, c CaptureConstraints) (Capture, error)
}

// Capture is an open microphone. Stop ends sample production and is
// idempotent.
type Capture interface {
	Track() webrtc.TrackLocal
	Stop()
}

func newOpusTrack(streamID string) (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio",
		streamID,
	)
}

type sampleCapture struct {
	track  *webrtc.TrackLocalStaticSample
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (c *sampleCapture) Track() webrtc.TrackLocal { return c.track }

func (c *sampleCapture) Stop() {
	c.once.Do(func() {
		c.cancel()
		<-c.done
	})
}

// start runs produce on its own goroutine until the capture is stopped.
func startCapture(track *webrtc.TrackLocalStaticSample, produce func(ctx context.Context)) *sampleCapture {
	ctx, cancel := context.WithCancel(context.Background())
	c := &sampleCapture{track: track, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		produce(ctx)
	}()
	return c
}

// SilenceSource is a microphone that never says anything.
type SilenceSource struct{}

func (SilenceSource) Open(ctx context.Context, c CaptureConstraints) (Capture, error) {
	track, err := newOpusTrack("callsim-silence")
	if err != nil {
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	log.Debug().Interface("constraints", c).Msg("Opening silent capture")

	return startCapture(track, func(ctx context.Context) {
		ticker := time.NewTicker(opusFrameDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := track.WriteSample(media.Sample{Data: opusSilenceFrame, Duration: opusFrameDuration}); err != nil {
					log.Debug().Err(err).Msg("Silence write failed")
				}
			}
		}
	}), nil
}

// OggFileSource plays an Ogg/Opus file in a loop as the microphone signal.
type OggFileSource struct {
	Path string
}

func (s OggFileSource) Open(ctx context.Context, c CaptureConstraints) (Capture, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read ogg header: %w", err)
	}
	track, err := newOpusTrack("callsim-file")
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	log.Debug().Str("path", s.Path).Interface("constraints", c).Msg("Opening file capture")

	return startCapture(track, func(ctx context.Context) {
		defer file.Close()

		var lastGranule uint64
		ticker := time.NewTicker(opusFrameDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			page, header, err := ogg.ParseNextPage()
			if errors.Is(err, io.EOF) {
				if _, err := file.Seek(0, io.SeekStart); err != nil {
					log.Error().Err(err).Msg("Rewinding capture file failed")
					return
				}
				if ogg, _, err = oggreader.NewWith(file); err != nil {
					log.Error().Err(err).Msg("Reopening capture file failed")
					return
				}
				lastGranule = 0
				continue
			}
			if err != nil {
				log.Error().Err(err).Msg("Reading capture file failed")
				return
			}

			samples := float64(header.GranulePosition - lastGranule)
			lastGranule = header.GranulePosition
			duration := time.Duration((samples / 48000) * float64(time.Second))
			if err := track.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
				log.Debug().Err(err).Msg("Capture write failed")
			}
		}
	}), nil
}
