// Package portal implements PIN based sign-in for the member self-service
// portal: PIN issuance with a reissue cooldown, PIN verification, and
// stateless encrypted session cookies scoped to one gym.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/gymportal/config"
	"github.com/tech-arch1tect/gymportal/services/cipher"
	"github.com/tech-arch1tect/gymportal/services/logging"
	"github.com/tech-arch1tect/gymportal/services/mail"
	"github.com/tech-arch1tect/gymportal/services/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MailService interface {
	SendPortalPIN(ctx context.Context, msg mail.PortalPIN) error
}

type GymSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	LogoURL *string   `json:"logo_url"`
}

type PINStatus struct {
	HasPIN   bool      `json:"hasPin"`
	MemberID uuid.UUID `json:"memberId"`
}

type AccessResult struct {
	Message  string `json:"message"`
	IsNewPIN bool   `json:"isNewPin"`
}

type MemberInfo struct {
	MemberID    uuid.UUID `json:"memberId"`
	GymID       uuid.UUID `json:"gymId"`
	MemberName  string    `json:"memberName"`
	MemberEmail string    `json:"memberEmail"`
	GymName     string    `json:"gymName"`
	GymLogoURL  *string   `json:"gymLogoUrl"`
}

type Service struct {
	store       store
	cipher      *cipher.Cipher
	sessions    sessionCodec
	gyms        *gymCache
	mailService MailService
	metrics     *metrics.Metrics
	logger      *logging.Service

	now    func() time.Time
	random io.Reader

	pinCooldown     time.Duration
	sessionDuration time.Duration
	cookieName      string
	secureCookies   bool
	atomicCooldown  bool
}

func NewService(cfg *config.Config, db *gorm.DB, logger *logging.Service) (*Service, error) {
	if err := config.ValidatePortalConfig(&cfg.Portal); err != nil {
		return nil, err
	}

	c, err := cipher.New(cfg.Portal.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal cipher: %w", err)
	}

	return &Service{
		store:           store{db: db},
		cipher:          c,
		sessions:        sessionCodec{cipher: c},
		gyms:            newGymCache(cfg.Portal.GymCacheTTL),
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		pinCooldown:     cfg.Portal.PINCooldown,
		sessionDuration: cfg.Portal.SessionDuration,
		cookieName:      cfg.Portal.CookieName,
		secureCookies:   cfg.App.IsProduction(),
		atomicCooldown:  cfg.Portal.AtomicCooldown,
	}, nil
}

func (s *Service) SetMailService(mailService MailService) {
	s.mailService = mailService
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock replaces the time source. Tests use it to step across the
// cooldown and session expiry boundaries.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetRandom replaces the PIN randomness source.
func (s *Service) SetRandom(r io.Reader) {
	s.random = r
}

func (s *Service) CookieName() string {
	return s.cookieName
}

func (s *Service) GetGymBySlug(ctx context.Context, slug string) (*GymSummary, error) {
	gym, err := s.gymBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, MsgGymNotFound, err)
		}
		s.logUnexpected("failed to look up gym", err, zap.String("slug", slug))
		return nil, unexpected(err)
	}

	return &GymSummary{ID: gym.ID, Name: gym.Name, LogoURL: gym.LogoURL}, nil
}

func (s *Service) CheckMemberPINStatus(ctx context.Context, email string, gymID uuid.UUID) (*PINStatus, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newError(KindInvalidInput, MsgEmailRequired, nil)
	}

	member, err := s.store.memberByEmail(ctx, gymID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, MsgMemberNotFound, err)
		}
		s.logUnexpected("failed to look up member", err, zap.String("gym_id", gymID.String()))
		return nil, unexpected(err)
	}

	return &PINStatus{HasPIN: member.HasPIN(), MemberID: member.ID}, nil
}

func (s *Service) RequestPortalAccess(ctx context.Context, email string, gymID uuid.UUID) (*AccessResult, error) {
	result, err := s.requestPortalAccess(ctx, email, gymID)
	s.metrics.PINRequest(outcomeFor(err))
	return result, err
}

func (s *Service) requestPortalAccess(ctx context.Context, email string, gymID uuid.UUID) (*AccessResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newError(KindInvalidInput, MsgEmailRequired, nil)
	}

	member, err := s.store.memberByEmail(ctx, gymID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, MsgMemberNotFound, err)
		}
		s.logUnexpected("failed to look up member", err, zap.String("gym_id", gymID.String()))
		return nil, unexpected(err)
	}

	now := s.now()
	if wait := s.cooldownRemaining(member, now); wait > 0 {
		return nil, rateLimited(wait)
	}

	gym, err := s.store.gymByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, MsgGymNotFound, err)
		}
		s.logUnexpected("failed to look up gym", err, zap.String("gym_id", gymID.String()))
		return nil, unexpected(err)
	}

	pin, err := generatePIN(s.random)
	if err != nil {
		s.logUnexpected("failed to generate PIN", err)
		return nil, unexpected(err)
	}

	encrypted, err := s.cipher.Encrypt(pin)
	if err != nil {
		s.logUnexpected("failed to encrypt PIN", err)
		return nil, unexpected(err)
	}

	isNewPIN := !member.HasPIN()

	if s.atomicCooldown {
		saved, err := s.store.savePINIfCooledDown(ctx, member, encrypted, now, now.Add(-s.pinCooldown))
		if err != nil {
			s.logUnexpected("failed to store PIN", err, zap.String("member_id", member.ID.String()))
			return nil, unexpected(err)
		}
		if !saved {
			return nil, s.lostCooldownRace(ctx, member, now)
		}
	} else if err := s.store.savePIN(ctx, member, encrypted, now); err != nil {
		s.logUnexpected("failed to store PIN", err, zap.String("member_id", member.ID.String()))
		return nil, unexpected(err)
	}

	s.sendPINEmail(ctx, mail.PortalPIN{
		To:         member.Email,
		PIN:        pin,
		MemberName: member.FullName,
		GymName:    gym.Name,
		IsNewPIN:   isNewPIN,
	})

	if s.logger != nil {
		s.logger.Info("portal PIN issued",
			zap.String("member_id", member.ID.String()),
			zap.String("gym_id", gymID.String()),
			zap.Bool("new_pin", isNewPIN))
	}

	if isNewPIN {
		return &AccessResult{
			Message:  fmt.Sprintf("Welcome to the %s member portal! Your PIN has been sent to your email.", gym.Name),
			IsNewPIN: true,
		}, nil
	}
	return &AccessResult{Message: "A new PIN has been sent to your email."}, nil
}

func (s *Service) cooldownRemaining(member *Member, now time.Time) time.Duration {
	if member.LastPINSentAt == nil {
		return 0
	}
	return s.pinCooldown - now.Sub(*member.LastPINSentAt)
}

// lostCooldownRace reports the wait after a concurrent request wrote first.
func (s *Service) lostCooldownRace(ctx context.Context, member *Member, now time.Time) error {
	wait := s.pinCooldown
	if fresh, err := s.store.memberByID(ctx, member.GymID, member.ID); err == nil {
		if remaining := s.cooldownRemaining(fresh, now); remaining > 0 {
			wait = remaining
		}
	}
	return rateLimited(wait)
}

func rateLimited(wait time.Duration) *Error {
	minutes := int(math.Ceil(wait.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return newError(KindRateLimited,
		fmt.Sprintf("Please wait %d %s before requesting a new PIN.", minutes, unit), nil)
}

// sendPINEmail never fails the request. The PIN is already stored, so a
// delivery problem is reported through logs and metrics only.
func (s *Service) sendPINEmail(ctx context.Context, msg mail.PortalPIN) {
	if s.mailService == nil {
		if s.logger != nil {
			s.logger.Warn("mail service not configured, PIN email skipped")
		}
		s.metrics.Email(metrics.OutcomeSkipped)
		return
	}

	if err := s.mailService.SendPortalPIN(ctx, msg); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send portal PIN email", zap.Error(err))
		}
		s.metrics.Email(metrics.OutcomeError)
		return
	}
	s.metrics.Email(metrics.OutcomeSuccess)
}

func (s *Service) SignInWithPIN(ctx context.Context, cookies Cookies, email, pin, gymSlug string) (*MemberSession, error) {
	sess, err := s.signInWithPIN(ctx, cookies, email, pin, gymSlug)
	s.metrics.SignIn(outcomeFor(err))
	return sess, err
}

func (s *Service) signInWithPIN(ctx context.Context, cookies Cookies, email, pin, gymSlug string) (*MemberSession, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newError(KindInvalidInput, MsgEmailRequired, nil)
	}
	if strings.TrimSpace(pin) == "" {
		return nil, newError(KindInvalidInput, MsgPINRequired, nil)
	}

	gym, err := s.gymBySlug(ctx, gymSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, err)
		}
		s.logUnexpected("failed to look up gym", err, zap.String("slug", gymSlug))
		return nil, unexpected(err)
	}

	member, err := s.store.memberByEmail(ctx, gym.ID, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, err)
		}
		s.logUnexpected("failed to look up member", err, zap.String("gym_id", gym.ID.String()))
		return nil, unexpected(err)
	}

	if !member.HasPIN() {
		return nil, newError(KindInvalidCredentials, MsgNoPIN, nil)
	}

	stored, err := s.cipher.Decrypt(*member.PortalPIN)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("stored portal PIN could not be decrypted",
				zap.String("member_id", member.ID.String()))
		}
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, err)
	}

	if !pinsMatch(stored, pin) {
		return nil, newError(KindInvalidCredentials, MsgInvalidCredentials, nil)
	}

	now := s.now()
	sess := MemberSession{MemberID: member.ID, GymID: gym.ID}
	token, err := s.sessions.issue(sess, now.Add(s.sessionDuration))
	if err != nil {
		s.logUnexpected("failed to issue session token", err)
		return nil, unexpected(err)
	}
	s.setSessionCookie(cookies, token, now)

	if s.logger != nil {
		s.logger.Info("member signed in",
			zap.String("member_id", member.ID.String()),
			zap.String("gym_id", gym.ID.String()))
	}
	return &sess, nil
}

func (s *Service) GetAuthenticatedMember(ctx context.Context, cookies Cookies, gymSlug string) (*MemberSession, error) {
	sess, _, err := s.authenticate(ctx, cookies, gymSlug)
	s.metrics.SessionCheck(outcomeFor(err))
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) GetAuthenticatedMemberInfo(ctx context.Context, cookies Cookies, gymSlug string) (*MemberInfo, error) {
	sess, gym, err := s.authenticate(ctx, cookies, gymSlug)
	s.metrics.SessionCheck(outcomeFor(err))
	if err != nil {
		return nil, err
	}

	member, err := s.store.memberByID(ctx, sess.GymID, sess.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, MsgMemberNotFound, err)
		}
		s.logUnexpected("failed to look up member", err, zap.String("member_id", sess.MemberID.String()))
		return nil, unexpected(err)
	}

	return &MemberInfo{
		MemberID:    member.ID,
		GymID:       gym.ID,
		MemberName:  member.FullName,
		MemberEmail: member.Email,
		GymName:     gym.Name,
		GymLogoURL:  gym.LogoURL,
	}, nil
}

// authenticate verifies the session cookie against the gym named in the
// request. Undecryptable or expired tokens are cleared; a token for another
// gym is left in place since it may be valid there.
func (s *Service) authenticate(ctx context.Context, cookies Cookies, gymSlug string) (*MemberSession, *Gym, error) {
	token, ok := cookies.Get(s.cookieName)
	if !ok {
		return nil, nil, newError(KindNotAuthenticated, MsgNotAuthenticated, nil)
	}

	sess, err := s.sessions.verify(token, s.now())
	if err != nil {
		s.clearSessionCookie(cookies)
		if s.logger != nil {
			s.logger.Debug("session cookie rejected", zap.Error(err))
		}
		return nil, nil, newError(KindSessionExpired, MsgSessionExpired, err)
	}

	gym, err := s.gymBySlug(ctx, gymSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, newError(KindInvalidSession, MsgInvalidSession, err)
		}
		s.logUnexpected("failed to look up gym", err, zap.String("slug", gymSlug))
		return nil, nil, unexpected(err)
	}

	if gym.ID != sess.GymID {
		if s.logger != nil {
			s.logger.Warn("session used against another gym",
				zap.String("member_id", sess.MemberID.String()),
				zap.String("session_gym_id", sess.GymID.String()),
				zap.String("request_gym_id", gym.ID.String()))
		}
		return nil, nil, newError(KindInvalidSession, MsgInvalidSession, nil)
	}

	return &sess, gym, nil
}

// SignOut always succeeds; there is no server side session to revoke.
func (s *Service) SignOut(ctx context.Context, cookies Cookies) error {
	s.clearSessionCookie(cookies)
	return nil
}

func (s *Service) gymBySlug(ctx context.Context, slug string) (*Gym, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, gorm.ErrRecordNotFound
	}

	if gym, ok := s.gyms.get(slug); ok {
		return &gym, nil
	}

	gym, err := s.store.gymBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.gyms.set(*gym)
	return gym, nil
}

func (s *Service) logUnexpected(msg string, err error, fields ...zap.Field) {
	if s.logger == nil {
		return
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch KindOf(err) {
	case KindNotFound:
		return metrics.OutcomeNotFound
	case KindRateLimited:
		return metrics.OutcomeRateLimited
	case KindInvalidCredentials:
		return metrics.OutcomeInvalidCredentials
	case KindInvalidInput:
		return metrics.OutcomeInvalidInput
	case KindNotAuthenticated:
		return metrics.OutcomeNotAuthenticated
	case KindSessionExpired:
		return metrics.OutcomeExpired
	case KindInvalidSession:
		return metrics.OutcomeInvalidSession
	default:
		return metrics.OutcomeError
	}
}
