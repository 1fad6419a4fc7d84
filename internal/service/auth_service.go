package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eventconnect-server/internal/audit"
	"eventconnect-server/internal/model"
	"eventconnect-server/internal/notify"
	"eventconnect-server/internal/store"
	"eventconnect-server/internal/util"
)

const (
	otpTTL = 5 * time.Minute

	loginSMSTemplate    = "Your EventConnect verification code is: %s. Valid for 5 minutes."
	recoverySMSTemplate = "Your EventConnect account recovery code is: %s. Valid for 5 minutes."
)

// AuthService orchestrates phone verification: OTP issuance, login, and the
// unauthenticated recovery flow. It owns the otp: and recovery: namespaces.
type AuthService struct {
	kv         store.KV
	notifier   notify.Notifier
	events     *audit.Publisher
	logger     *zap.Logger
	demoExpose bool
	ttl        time.Duration
}

// NewAuthService creates an auth service. notifier may be nil when no SMS
// gateway is configured; codes are then never delivered and, with demoExpose
// set, are echoed back in responses instead.
func NewAuthService(kv store.KV, notifier notify.Notifier, events *audit.Publisher, logger *zap.Logger, demoExpose bool) *AuthService {
	return &AuthService{
		kv:         kv,
		notifier:   notifier,
		events:     events,
		logger:     logger,
		demoExpose: demoExpose,
		ttl:        otpTTL,
	}
}

// RequestLoginCode issues an OTP challenge for phone. The phone is accepted
// as-is; format validation belongs to the UI boundary.
func (s *AuthService) RequestLoginCode(ctx context.Context, phone string) (*model.OTPChallenge, error) {
	challenge, err := s.issueChallenge(ctx, store.PrefixOTP, phone, loginSMSTemplate)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventOTPSent, Phone: phone})
	return challenge, nil
}

// VerifyLoginCode validates the OTP against the stored session, consumes the
// session, and logs the caller in, provisioning a user for a previously
// unseen phone.
func (s *AuthService) VerifyLoginCode(ctx context.Context, sessionID, code, phone string) (*model.AuthResult, error) {
	if err := s.consumeChallenge(ctx, store.PrefixOTP, sessionID, code, phone); err != nil {
		return nil, err
	}

	user, found, err := getUserByPhone(ctx, s.kv, phone)
	if err != nil {
		return nil, err
	}
	if !found {
		user = &model.User{
			ID:        NewSessionID(),
			Phone:     phone,
			UserType:  model.UserTypeIndividual,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := putUser(ctx, s.kv, user); err != nil {
			return nil, err
		}
		s.logger.Info("User provisioned on first login", util.String("user_id", user.ID))
	}

	token, err := mintToken(ctx, s.kv, user.ID)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventLoginSuccess, UserID: user.ID, Phone: phone})

	return &model.AuthResult{
		AccessToken: token,
		UserID:      user.ID,
		User:        user,
	}, nil
}

// RequestRecovery issues a recovery challenge. Unlike login it requires an
// existing account for the phone.
func (s *AuthService) RequestRecovery(ctx context.Context, phone string) (*model.OTPChallenge, error) {
	if _, found, err := getUserByPhone(ctx, s.kv, phone); err != nil {
		return nil, err
	} else if !found {
		return nil, ErrNoAccount
	}

	challenge, err := s.issueChallenge(ctx, store.PrefixRecovery, phone, recoverySMSTemplate)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventRecoveryRequest, Phone: phone})
	return challenge, nil
}

// VerifyRecovery validates a recovery challenge and mints an additional
// access token. Previously issued tokens stay valid: recovery is additive,
// not a global sign-out.
func (s *AuthService) VerifyRecovery(ctx context.Context, sessionID, code, phone string) (*model.AuthResult, error) {
	if err := s.consumeChallenge(ctx, store.PrefixRecovery, sessionID, code, phone); err != nil {
		return nil, err
	}

	user, found, err := getUserByPhone(ctx, s.kv, phone)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	token, err := mintToken(ctx, s.kv, user.ID)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventRecoverySuccess, UserID: user.ID, Phone: phone})

	return &model.AuthResult{
		AccessToken: token,
		UserID:      user.ID,
		User:        user,
		Message:     "Account recovered successfully",
	}, nil
}

// issueChallenge stores a fresh OTP session under prefix and attempts
// delivery. Delivery failure is non-fatal.
func (s *AuthService) issueChallenge(ctx context.Context, prefix, phone, template string) (*model.OTPChallenge, error) {
	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	sessionID := NewSessionID()

	session := model.OTPSession{
		Phone:     phone,
		OTPCode:   code,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal OTP session: %w", err)
	}
	if err := s.kv.Set(ctx, prefix+sessionID, raw, s.ttl); err != nil {
		return nil, err
	}

	delivered := s.deliver(ctx, phone, fmt.Sprintf(template, code))

	challenge := &model.OTPChallenge{SessionID: sessionID}
	if delivered {
		challenge.Message = "OTP sent to your phone"
	} else {
		challenge.Message = "OTP generated"
		if s.demoExpose {
			challenge.OTPCode = code
		}
	}

	s.logger.Info("OTP challenge issued",
		util.String("session_id", sessionID),
		util.Bool("delivered", delivered),
	)

	return challenge, nil
}

// consumeChallenge validates code and phone against the stored session and
// consumes it atomically on success. A wrong code leaves the session intact;
// losing a consumption race reports ErrInvalidSession, same as expiry.
func (s *AuthService) consumeChallenge(ctx context.Context, prefix, sessionID, code, phone string) error {
	raw, found, err := s.kv.Get(ctx, prefix+sessionID)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidSession
	}

	var session model.OTPSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("corrupt OTP session %s: %w", sessionID, err)
	}
	if session.OTPCode != code || session.Phone != phone {
		return ErrInvalidCode
	}

	consumed, err := s.kv.CompareAndDelete(ctx, prefix+sessionID, raw)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidSession
	}
	return nil
}

func (s *AuthService) deliver(ctx context.Context, phone, message string) bool {
	if s.notifier == nil {
		s.logger.Info("SMS gateway not configured - code not delivered", util.String("phone", phone))
		return false
	}
	if err := s.notifier.Send(ctx, phone, message); err != nil {
		s.logger.Warn("SMS delivery failed", util.String("phone", phone), util.ErrorField(err))
		return false
	}
	return true
}
