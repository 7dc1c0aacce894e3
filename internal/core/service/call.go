package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/Wyydra/callsim/internal/core/port"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSettleWindow = 500 * time.Millisecond
	DefaultEndedDelay   = 2 * time.Second
)

// CallService drives the call lifecycle. Every transition happens under mu;
// negotiator callbacks arrive on transport goroutines and are checked against
// the current session before they touch any state. Resources are released
// outside mu.
type CallService struct {
	personas      port.PersonaProvider
	newNegotiator port.NegotiatorFactory
	gateway       port.CallGateway
	clock         Clock
	settleWindow  time.Duration
	endedDelay    time.Duration

	mu            sync.Mutex
	state         domain.CallState
	errMsg        string
	agentSpeaking bool
	session       *callSession
	endedTimer    Timer
	endedGen      uint64
}

type callSession struct {
	id         domain.SessionID
	negotiator port.Negotiator
	settle     Timer
	settleGen  uint64
}

type CallOption func(*CallService)

func WithClock(c Clock) CallOption {
	return func(s *CallService) { s.clock = c }
}

func WithSettleWindow(d time.Duration) CallOption {
	return func(s *CallService) { s.settleWindow = d }
}

func WithEndedDelay(d time.Duration) CallOption {
	return func(s *CallService) { s.endedDelay = d }
}

func NewCallService(personas port.PersonaProvider, factory port.NegotiatorFactory, gateway port.CallGateway, opts ...CallOption) *CallService {
	s := &CallService{
		personas:      personas,
		newNegotiator: factory,
		gateway:       gateway,
		clock:         SystemClock,
		settleWindow:  DefaultSettleWindow,
		endedDelay:    DefaultEndedDelay,
		state:         domain.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CallService) Snapshot() domain.CallSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start rings the phone.
func (s *CallService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return s.invalidLocked("start")
	}
	s.errMsg = ""
	s.setStateLocked(ctx, domain.StateRinging)
	return nil
}

// Decline hangs up a ringing phone. Nothing has been acquired yet.
func (s *CallService) Decline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateRinging {
		return s.invalidLocked("decline")
	}
	s.setStateLocked(ctx, domain.StateIdle)
	return nil
}

// Answer resolves the persona and runs the handshake. It blocks until the
// handshake finishes; handshake failures end the call and are reported
// through the call state, not through the returned error.
func (s *CallService) Answer(ctx context.Context) error {
	sess, err := s.beginAnswer(ctx)
	if err != nil {
		return err
	}
	s.handshake(ctx, sess)
	return nil
}

// AnswerAsync is Answer with the handshake moved to a goroutine. The state
// guard still runs synchronously so callers learn about invalid transitions.
func (s *CallService) AnswerAsync(ctx context.Context) error {
	sess, err := s.beginAnswer(ctx)
	if err != nil {
		return err
	}
	go s.handshake(context.WithoutCancel(ctx), sess)
	return nil
}

func (s *CallService) beginAnswer(ctx context.Context) (*callSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateRinging {
		return nil, s.invalidLocked("answer")
	}
	sess := &callSession{id: domain.NewSessionID()}
	s.session = sess
	s.setStateLocked(ctx, domain.StateConnecting)
	return sess, nil
}

func (s *CallService) handshake(ctx context.Context, sess *callSession) {
	l := log.With().Str("session_id", sess.id.String()).Logger()

	persona, err := s.personas.Persona(ctx)
	if err != nil {
		s.fail(sess, domain.NewCallError(domain.ErrorConfig, err))
		return
	}
	persona = domain.ResolvePersona(persona)

	neg := s.newNegotiator(persona, &sessionCallbacks{svc: s, sess: sess})

	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		l.Debug().Msg("Call ended before handshake started")
		neg.Disconnect()
		return
	}
	sess.negotiator = neg
	s.mu.Unlock()

	l.Info().Str("agent", persona.AgentName).Msg("Starting handshake")
	if err := neg.Connect(ctx); err != nil {
		l.Debug().Err(err).Msg("Handshake finished with error")
	}
}

// End hangs up an active call.
func (s *CallService) End(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.Active() {
		err := s.invalidLocked("end")
		s.mu.Unlock()
		return err
	}
	neg := s.teardownLocked()
	s.endLocked(ctx)
	s.mu.Unlock()

	if neg != nil {
		neg.Disconnect()
	}
	return nil
}

// Close releases everything the service holds and returns it to Idle. It is
// the disposal path of the hosting process and may be called repeatedly.
func (s *CallService) Close() {
	s.mu.Lock()
	neg := s.teardownLocked()
	if s.endedTimer != nil {
		s.endedTimer.Stop()
		s.endedTimer = nil
	}
	s.endedGen++
	if s.state != domain.StateIdle {
		s.errMsg = ""
		s.setStateLocked(context.Background(), domain.StateIdle)
	}
	s.mu.Unlock()

	if neg != nil {
		neg.Disconnect()
	}
}

func (s *CallService) onConnectionEstablished(sess *callSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess || s.state != domain.StateConnecting {
		return
	}
	// The donor picks up first, so the floor starts on the user's side.
	s.setStateLocked(context.Background(), domain.StateUserSpeaking)
}

func (s *CallService) onAgentSpeaking(sess *callSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess || !s.state.Active() {
		return
	}
	s.agentSpeaking = true
	if s.state != domain.StateAgentSpeaking {
		s.setStateLocked(context.Background(), domain.StateAgentSpeaking)
	}
	s.restartSettleLocked(sess)
}

func (s *CallService) onAgentFinished(sess *callSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess || !s.state.Connected() {
		return
	}
	s.cancelSettleLocked(sess)
	s.agentSpeaking = false
	if s.state != domain.StateConversation {
		s.setStateLocked(context.Background(), domain.StateConversation)
	}
}

func (s *CallService) onSettled(sess *callSession, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess || sess.settleGen != gen {
		return
	}
	sess.settle = nil
	s.agentSpeaking = false
	if s.state == domain.StateAgentSpeaking {
		s.setStateLocked(context.Background(), domain.StateConversation)
	}
}

func (s *CallService) onUserTranscript(sess *callSession, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess {
		return
	}
	ev := domain.NewTranscriptEvent(s.snapshotLocked(), text)
	if err := s.gateway.Publish(context.Background(), ev); err != nil {
		log.Error().Err(err).Str("session_id", sess.id.String()).Msg("Failed to publish transcript")
	}
}

func (s *CallService) fail(sess *callSession, ce *domain.CallError) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	log.Warn().
		Str("session_id", sess.id.String()).
		Str("kind", string(ce.Kind)).
		AnErr("cause", ce.Err).
		Msg("Call failed")

	neg := s.teardownLocked()
	s.errMsg = ce.Message
	s.endLocked(context.Background())
	s.mu.Unlock()

	if neg != nil {
		neg.Disconnect()
	}
}

func (s *CallService) onEndedTimeout(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endedGen != gen || s.state != domain.StateEnded {
		return
	}
	s.endedTimer = nil
	s.errMsg = ""
	s.setStateLocked(context.Background(), domain.StateIdle)
}

// teardownLocked detaches the current session and cancels its timer. The
// returned negotiator must be disconnected after mu is released.
func (s *CallService) teardownLocked() port.Negotiator {
	sess := s.session
	s.session = nil
	s.agentSpeaking = false
	if sess == nil {
		return nil
	}
	s.cancelSettleLocked(sess)
	return sess.negotiator
}

func (s *CallService) endLocked(ctx context.Context) {
	s.setStateLocked(ctx, domain.StateEnded)

	if s.endedTimer != nil {
		s.endedTimer.Stop()
	}
	s.endedGen++
	gen := s.endedGen
	s.endedTimer = s.clock.AfterFunc(s.endedDelay, func() { s.onEndedTimeout(gen) })
}

func (s *CallService) restartSettleLocked(sess *callSession) {
	if sess.settle != nil {
		sess.settle.Stop()
	}
	sess.settleGen++
	gen := sess.settleGen
	sess.settle = s.clock.AfterFunc(s.settleWindow, func() { s.onSettled(sess, gen) })
}

func (s *CallService) cancelSettleLocked(sess *callSession) {
	if sess.settle != nil {
		sess.settle.Stop()
		sess.settle = nil
	}
	sess.settleGen++
}

func (s *CallService) setStateLocked(ctx context.Context, state domain.CallState) {
	prev := s.state
	s.state = state

	log.Info().
		Str("from", string(prev)).
		Str("to", string(state)).
		Msg("Call state changed")

	if err := s.gateway.Publish(ctx, domain.NewStateEvent(s.snapshotLocked())); err != nil {
		log.Error().Err(err).Str("state", string(state)).Msg("Failed to publish call state")
	}
}

func (s *CallService) snapshotLocked() domain.CallSnapshot {
	snap := domain.CallSnapshot{
		State:         s.state,
		Error:         s.errMsg,
		AgentSpeaking: s.agentSpeaking,
	}
	if s.session != nil {
		snap.SessionID = s.session.id
	}
	return snap
}

func (s *CallService) invalidLocked(op string) error {
	return fmt.Errorf("%s in state %s: %w", op, s.state, domain.ErrInvalidTransition)
}

// sessionCallbacks binds negotiator events to the session they belong to.
type sessionCallbacks struct {
	svc  *CallService
	sess *callSession
}

func (c *sessionCallbacks) OnConnectionEstablished() { c.svc.onConnectionEstablished(c.sess) }

func (c *sessionCallbacks) OnAgentSpeaking() { c.svc.onAgentSpeaking(c.sess) }

func (c *sessionCallbacks) OnAgentFinished() { c.svc.onAgentFinished(c.sess) }

func (c *sessionCallbacks) OnUserTranscript(text string) { c.svc.onUserTranscript(c.sess, text) }

func (c *sessionCallbacks) OnError(err *domain.CallError) { c.svc.fail(c.sess, err) }
