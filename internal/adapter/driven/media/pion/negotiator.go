// Package pion implements the session negotiator on top of pion/webrtc: it
// owns the microphone capture, the peer connection, the "oai-events" control
// channel and the remote audio sink for exactly one call.
package pion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/Wyydra/callsim/internal/core/port"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	ControlChannelLabel  = "oai-events"
	DefaultGatherTimeout = 3 * time.Second
)

var errStopped = errors.New("negotiator stopped")

type Config struct {
	Issuer    port.CredentialIssuer
	Exchanger port.SDPExchanger
	Source    AudioSource
	// NewSink is called once per call. Nil means remote audio is discarded.
	NewSink       func() PlaybackSink
	Voice         string
	ICEServers    []string
	GatherTimeout time.Duration
	// SettingEngine is optional; tests use it to allow loopback candidates.
	SettingEngine *webrtc.SettingEngine
}

// Negotiator drives one handshake with the voice service. It is not reusable:
// after Disconnect or a failed Connect a new one is created for the next call.
type Negotiator struct {
	cfg     Config
	api     *webrtc.API
	persona domain.PersonaConfig
	cb      port.Callbacks

	events   chan func()
	done     chan struct{}
	doneOnce sync.Once
	opened   sync.Once

	mu       sync.Mutex
	started  bool
	stopping bool
	closed   bool
	failed   bool
	cancel   context.CancelFunc
	capture  Capture
	pc       *webrtc.PeerConnection
	dc       *webrtc.DataChannel
	sink     PlaybackSink
}

func newAPI(cfg Config) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	opts := []func(*webrtc.API){webrtc.WithMediaEngine(m)}
	if cfg.SettingEngine != nil {
		opts = append(opts, webrtc.WithSettingEngine(*cfg.SettingEngine))
	}
	return webrtc.NewAPI(opts...), nil
}

// NewFactory validates cfg once and returns a factory producing one
// Negotiator per call.
func NewFactory(cfg Config) (port.NegotiatorFactory, error) {
	if cfg.Issuer == nil || cfg.Exchanger == nil {
		return nil, errors.New("pion: issuer and exchanger are required")
	}
	if cfg.Source == nil {
		cfg.Source = SilenceSource{}
	}
	if cfg.NewSink == nil {
		cfg.NewSink = NewDiscardSink
	}
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = DefaultGatherTimeout
	}
	api, err := newAPI(cfg)
	if err != nil {
		return nil, err
	}
	return func(persona domain.PersonaConfig, cb port.Callbacks) port.Negotiator {
		return newNegotiator(cfg, api, persona, cb)
	}, nil
}

func newNegotiator(cfg Config, api *webrtc.API, persona domain.PersonaConfig, cb port.Callbacks) *Negotiator {
	return &Negotiator{
		cfg:     cfg,
		api:     api,
		persona: persona,
		cb:      cb,
		events:  make(chan func(), 64),
		done:    make(chan struct{}),
	}
}

func (n *Negotiator) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return domain.ErrAlreadyConnected
	}
	n.started = true
	if n.closed {
		n.mu.Unlock()
		return errStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.mu.Unlock()
	defer cancel()

	go n.dispatch()

	err := n.handshake(ctx)
	if err == nil {
		log.Info().Str("voice", n.cfg.Voice).Msg("Realtime session negotiated")
		return nil
	}
	if n.isStopping() {
		n.release()
		return errStopped
	}

	ce := domain.AsCallError(err, domain.ErrorNegotiation)
	n.release()
	n.report(ce)
	return ce
}

func (n *Negotiator) Disconnect() {
	n.mu.Lock()
	n.stopping = true
	n.mu.Unlock()
	n.release()
}

func (n *Negotiator) handshake(ctx context.Context) error {
	cred, err := n.cfg.Issuer.IssueCredential(ctx, n.cfg.Voice, n.persona.SystemPrompt)
	if err != nil {
		return domain.NewCallError(domain.ErrorCredential, err)
	}
	if err := n.checkLive(); err != nil {
		return err
	}
	log.Debug().Time("expires_at", cred.ExpiresAt).Msg("Credential issued")

	capture, err := n.cfg.Source.Open(ctx, VoiceConstraints)
	if err != nil {
		return domain.NewCallError(domain.ErrorMedia, err)
	}
	if err := n.attach(func() { n.capture = capture }); err != nil {
		capture.Stop()
		return err
	}

	pc, err := n.api.NewPeerConnection(n.rtcConfiguration())
	if err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	sink := n.cfg.NewSink()
	if err := n.attach(func() { n.pc, n.sink = pc, sink }); err != nil {
		sink.Close()
		pc.Close()
		return err
	}

	pc.OnTrack(n.onTrack)
	pc.OnConnectionStateChange(n.onConnectionState)

	sender, err := pc.AddTrack(capture.Track())
	if err != nil {
		return domain.NewCallError(domain.ErrorMedia, err)
	}
	go drainRTCP(sender)

	dc, err := pc.CreateDataChannel(ControlChannelLabel, nil)
	if err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	if err := n.attach(func() { n.dc = dc }); err != nil {
		return err
	}
	dc.OnOpen(func() {
		n.post(n.markOpen)
	})
	dc.OnMessage(n.onMessage)
	dc.OnClose(func() {
		n.transportLost(errors.New("control channel closed"))
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	gatherTimer := time.NewTimer(n.cfg.GatherTimeout)
	defer gatherTimer.Stop()
	select {
	case <-gathered:
	case <-gatherTimer.C:
		log.Debug().Dur("timeout", n.cfg.GatherTimeout).Msg("ICE gathering incomplete, sending partial offer")
	case <-ctx.Done():
		return ctx.Err()
	}

	local := pc.LocalDescription()
	if local == nil {
		return domain.NewCallError(domain.ErrorNegotiation, errors.New("no local description"))
	}
	answer, err := n.cfg.Exchanger.ExchangeSDP(ctx, cred, domain.NewSignal(domain.SignalOffer, local.SDP))
	if err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	if err := n.checkLive(); err != nil {
		return err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.Payload,
	}); err != nil {
		return domain.NewCallError(domain.ErrorNegotiation, err)
	}
	return nil
}

func (n *Negotiator) rtcConfiguration() webrtc.Configuration {
	if len(n.cfg.ICEServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: n.cfg.ICEServers}},
	}
}

func (n *Negotiator) onTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	log.Debug().Str("kind", track.Kind().String()).Str("codec", track.Codec().MimeType).Msg("Received remote track")
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	n.mu.Lock()
	sink := n.sink
	n.mu.Unlock()
	if sink == nil {
		return
	}
	sink.Play(track)
}

func (n *Negotiator) onConnectionState(state webrtc.PeerConnectionState) {
	log.Debug().Str("state", state.String()).Msg("Peer connection state changed")
	switch state {
	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateClosed:
		n.transportLost(fmt.Errorf("peer connection %s", state))
	}
}

// transportLost reports a link that went away without us releasing it, such
// as a remote hang-up.
func (n *Negotiator) transportLost(cause error) {
	n.mu.Lock()
	released := n.closed
	n.mu.Unlock()
	if released {
		return
	}
	n.post(func() {
		n.report(domain.NewCallError(domain.ErrorTransport, cause))
	})
}

func (n *Negotiator) onMessage(msg webrtc.DataChannelMessage) {
	if !msg.IsString {
		return
	}
	ev, err := domain.ParseControlEvent(msg.Data)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed control message")
		return
	}
	n.post(func() {
		// A message proves the channel is open even if the open event lags.
		n.markOpen()
		n.handleControl(ev)
	})
}

func (n *Negotiator) markOpen() {
	n.opened.Do(func() {
		log.Info().Msg("Control channel open")
		n.cb.OnConnectionEstablished()
	})
}

func (n *Negotiator) handleControl(ev domain.ControlEvent) {
	switch ev.Kind {
	case domain.ControlKindSessionCreated:
		log.Debug().Msg("Realtime session created")
	case domain.ControlKindAgentSpeaking:
		n.cb.OnAgentSpeaking()
	case domain.ControlKindAgentFinished:
		n.cb.OnAgentFinished()
	case domain.ControlKindUserTranscript:
		n.cb.OnUserTranscript(ev.Transcript)
	case domain.ControlKindError:
		n.report(&domain.CallError{
			Kind:    domain.ErrorProtocol,
			Message: ev.Message,
			Err:     errors.New(ev.Message),
		})
	default:
		log.Debug().Str("type", ev.Type).Msg("Ignoring control message")
	}
}

// post queues f for the dispatcher. Dropped once the negotiator is released.
func (n *Negotiator) post(f func()) {
	select {
	case n.events <- f:
	case <-n.done:
	}
}

// dispatch delivers callbacks one at a time, off pion's goroutines, so the
// receiver may call Disconnect from inside a callback.
func (n *Negotiator) dispatch() {
	for {
		select {
		case <-n.done:
			return
		case f := <-n.events:
			select {
			case <-n.done:
				return
			default:
			}
			f()
		}
	}
}

// report delivers a fatal error at most once, and never after Disconnect.
func (n *Negotiator) report(ce *domain.CallError) {
	n.mu.Lock()
	if n.failed || n.stopping {
		n.mu.Unlock()
		return
	}
	n.failed = true
	n.mu.Unlock()

	log.Warn().Err(ce.Err).Str("kind", string(ce.Kind)).Msg("Session failed")
	n.cb.OnError(ce)
}

func (n *Negotiator) isStopping() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopping
}

func (n *Negotiator) checkLive() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errStopped
	}
	return nil
}

// attach stores a freshly acquired resource unless the negotiator has been
// released meanwhile, in which case the caller must dispose of it.
func (n *Negotiator) attach(store func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return errStopped
	}
	store()
	return nil
}

// release detaches every resource under the lock and closes them outside it,
// control channel first and peer connection last.
func (n *Negotiator) release() {
	n.mu.Lock()
	n.closed = true
	if n.cancel != nil {
		n.cancel()
	}
	dc, capture, sink, pc := n.dc, n.capture, n.sink, n.pc
	n.dc, n.capture, n.sink, n.pc = nil, nil, nil, nil
	n.mu.Unlock()

	n.doneOnce.Do(func() { close(n.done) })

	if dc != nil {
		if err := dc.Close(); err != nil {
			log.Debug().Err(err).Msg("Closing control channel")
		}
	}
	if capture != nil {
		capture.Stop()
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing playback sink")
		}
	}
	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Debug().Err(err).Msg("Closing peer connection")
		}
		log.Info().Msg("Realtime session released")
	}
}

// drainRTCP keeps the sender's interceptors running and surfaces loss stats.
func drainRTCP(sender *webrtc.RTPSender) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, p := range packets {
			if rr, ok := p.(*rtcp.ReceiverReport); ok {
				for _, r := range rr.Reports {
					log.Debug().
						Uint32("ssrc", r.SSRC).
						Uint8("fraction_lost", r.FractionLost).
						Uint32("total_lost", r.TotalLost).
						Uint32("jitter", r.Jitter).
						Msg("Receiver report")
				}
			}
		}
	}
}
