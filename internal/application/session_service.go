package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yumeka/bili2tg/internal/domain"
	"github.com/yumeka/bili2tg/internal/ports"
)

const qrPollInterval = 2 * time.Second

// SessionService owns the login lifecycle: it turns an unauthenticated
// process into one holding a valid, renewable session, persists the
// credential, and detects silent expiry through the liveness probe.
type SessionService struct {
	gateway ports.AuthGateway
	creds   ports.CredentialStore
	clock   ports.Clock
	logger  *zap.Logger

	presentQR func(url string)

	// mu serializes the whole lifecycle: only one handshake runs at a time
	// and callers blocked behind it adopt the in-flight attempt's outcome.
	mu              sync.Mutex
	state           domain.SessionState
	accountID       int64
	resumeAttempted bool
}

func NewSessionService(gateway ports.AuthGateway, creds ports.CredentialStore, clock ports.Clock, logger *zap.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		gateway:   gateway,
		creds:     creds,
		clock:     clock,
		logger:    logger,
		presentQR: func(string) {},
		state:     domain.SessionUnauthenticated,
	}
}

// OnQRChallenge registers the callback that surfaces the scannable URL to
// the operator. Set it before the first EnsureSession or Login call.
func (s *SessionService) OnQRChallenge(fn func(url string)) {
	if fn != nil {
		s.presentQR = fn
	}
}

// State reports the current lifecycle state and, when authenticated, the
// account id.
func (s *SessionService) State() (domain.SessionState, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.accountID
}

// EnsureSession guarantees a live session and returns the authenticated
// account id, running the QR handshake when no credential works. A probe
// that answers well-formed with a non-zero code marks the session expired
// and triggers a fresh handshake; any other probe failure is a hard error.
func (s *SessionService) EnsureSession(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SessionAuthenticated {
		accountID, err := s.gateway.WhoAmI(ctx)
		if err == nil {
			s.accountID = accountID
			return accountID, nil
		}
		if !errors.Is(err, domain.ErrNotAuthenticated) {
			return 0, err
		}
		s.state = domain.SessionExpired
		s.logger.Warn("session expired, renewing", zap.Int64("account_id", s.accountID))
	}

	if s.state == domain.SessionUnauthenticated && !s.resumeAttempted {
		accountID, err := s.resumeFromStoredCredential(ctx)
		if err == nil {
			return accountID, nil
		}
		// A transport failure says nothing about the credential; keep the
		// resume path open so the next call probes again instead of
		// demanding a fresh scan.
		if !errors.Is(err, domain.ErrNoCredential) && !errors.Is(err, domain.ErrNotAuthenticated) {
			return 0, err
		}
		s.resumeAttempted = true
		s.logger.Info("stored credential unusable, starting login", zap.Error(err))
	}

	if err := s.login(ctx); err != nil {
		return 0, err
	}
	return s.accountID, nil
}

// Login always runs a fresh handshake, regardless of the current state.
func (s *SessionService) Login(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.login(ctx); err != nil {
		return 0, err
	}
	return s.accountID, nil
}

func (s *SessionService) resumeFromStoredCredential(ctx context.Context) (int64, error) {
	credential, err := s.creds.Load(ctx)
	if err != nil {
		return 0, err
	}

	s.gateway.CommitCredential(credential)
	accountID, err := s.gateway.WhoAmI(ctx)
	if err != nil {
		return 0, err
	}

	s.state = domain.SessionAuthenticated
	s.accountID = accountID
	s.logger.Info("resumed session from stored credential", zap.Int64("account_id", accountID))
	return accountID, nil
}

// login runs the QR handshake. Until the confirmed poll, every failure
// leaves the session (credential, client, state) exactly as it was before
// the attempt.
func (s *SessionService) login(ctx context.Context) error {
	challenge, err := s.gateway.IssueQRChallenge(ctx)
	if err != nil {
		return err
	}

	before := s.state
	s.state = domain.SessionAwaitingScan
	s.presentQR(challenge.URL)

	for {
		poll, err := s.gateway.PollQRChallenge(ctx, challenge.PollKey)
		if err != nil {
			s.state = before
			return err
		}

		switch poll.Code {
		case domain.QRPollConfirmed:
			s.gateway.CommitCredential(poll.Credential)
			if err := s.creds.Save(ctx, poll.Credential); err != nil {
				s.state = before
				return fmt.Errorf("persist credential: %w", err)
			}
			accountID, err := s.gateway.WhoAmI(ctx)
			if err != nil {
				s.state = before
				return fmt.Errorf("probe after login: %w", err)
			}
			s.state = domain.SessionAuthenticated
			s.accountID = accountID
			s.logger.Info("login confirmed", zap.Int64("account_id", accountID))
			return nil

		case domain.QRPollExpired:
			s.state = before
			return fmt.Errorf("scan not confirmed in time (%s): %w", poll.Message, domain.ErrQRChallengeExpired)

		default:
			s.logger.Debug("awaiting scan",
				zap.Int64("code", poll.Code), zap.String("message", poll.Message))
		}

		if err := s.clock.Sleep(ctx, qrPollInterval); err != nil {
			s.state = before
			return err
		}
	}
}
