package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventconnect-server/internal/audit"
	"eventconnect-server/internal/model"
	"eventconnect-server/internal/notify"
	"eventconnect-server/internal/storage"
	"eventconnect-server/internal/store"
	"eventconnect-server/internal/util"
)

const deletionSMSTemplate = "Your EventConnect account deletion code is: %s. This action is irreversible."

// tokenPurgeConcurrency bounds parallel deletes during the token-namespace
// scan on account deletion.
const tokenPurgeConcurrency = 8

// AccountService handles authenticated profile operations and the two-phase
// account deletion flow. It owns the deletion: namespace and reuses the OTP
// machinery of the auth service.
type AccountService struct {
	kv         store.KV
	blobs      storage.BlobStore
	notifier   notify.Notifier
	events     *audit.Publisher
	logger     *zap.Logger
	demoExpose bool
	ttl        time.Duration
}

// NewAccountService creates an account service. blobs and notifier may be
// nil when the respective backends are not configured.
func NewAccountService(kv store.KV, blobs storage.BlobStore, notifier notify.Notifier, events *audit.Publisher, logger *zap.Logger, demoExpose bool) *AccountService {
	return &AccountService{
		kv:         kv,
		blobs:      blobs,
		notifier:   notifier,
		events:     events,
		logger:     logger,
		demoExpose: demoExpose,
		ttl:        otpTTL,
	}
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, found, err := getUser(ctx, s.kv, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of req and rewrites the record
// and its lookup indexes.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.User, error) {
	user, found, err := getUser(ctx, s.kv, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Email != nil && *req.Email != user.Email {
		if user.Email != "" {
			if err := s.kv.Del(ctx, store.PrefixUserEmail+user.Email); err != nil {
				return nil, err
			}
		}
		user.Email = *req.Email
	}

	if err := putUser(ctx, s.kv, user); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventProfileUpdated, UserID: userID})
	return user, nil
}

// UploadAvatar stores the image blob and persists its URL on the user. The
// blob name embeds the user id and upload time so re-uploads never collide.
func (s *AccountService) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	if s.blobs == nil {
		return "", ErrBlobStoreUnavailable
	}

	user, found, err := getUser(ctx, s.kv, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrUserNotFound
	}

	name := fmt.Sprintf("%s_%d%s", userID, time.Now().UnixMilli(), path.Ext(filename))
	url, err := s.blobs.Upload(ctx, name, r)
	if err != nil {
		return "", fmt.Errorf("avatar upload: %w", err)
	}

	user.Avatar = url
	if err := putUser(ctx, s.kv, user); err != nil {
		return "", err
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventAvatarUploaded, UserID: userID})
	s.logger.Info("Avatar uploaded", util.String("user_id", userID))
	return url, nil
}

// RequestDeletion starts the two-phase deletion flow for the authenticated
// user. The code goes out by SMS when the user has a phone on file;
// otherwise it is exposed in the response under the demo contract.
func (s *AccountService) RequestDeletion(ctx context.Context, userID string) (*model.OTPChallenge, error) {
	user, found, err := getUser(ctx, s.kv, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	sessionID := NewSessionID()

	session := model.DeletionSession{
		UserID:    userID,
		OTPCode:   code,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal deletion session: %w", err)
	}
	if err := s.kv.Set(ctx, store.PrefixDeletion+sessionID, raw, s.ttl); err != nil {
		return nil, err
	}

	delivered := false
	if user.Phone != "" && s.notifier != nil {
		if err := s.notifier.Send(ctx, user.Phone, fmt.Sprintf(deletionSMSTemplate, code)); err != nil {
			s.logger.Warn("Deletion SMS delivery failed", util.String("user_id", userID), util.ErrorField(err))
		} else {
			delivered = true
		}
	}

	challenge := &model.OTPChallenge{SessionID: sessionID, Message: "Deletion OTP sent"}
	if !delivered && s.demoExpose {
		challenge.OTPCode = code
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventDeletionRequest, UserID: userID})
	s.logger.Info("Deletion requested",
		util.String("user_id", userID),
		util.Bool("delivered", delivered),
	)

	return challenge, nil
}

// ConfirmDeletion verifies the deletion challenge and irreversibly removes
// the account: the user record, its lookup indexes, every access token bound
// to the user, and the avatar blob. Cleanup failures after the identity is
// gone are logged, never rolled back.
func (s *AccountService) ConfirmDeletion(ctx context.Context, userID, sessionID, code string) error {
	raw, found, err := s.kv.Get(ctx, store.PrefixDeletion+sessionID)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidSession
	}

	var session model.DeletionSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("corrupt deletion session %s: %w", sessionID, err)
	}
	if session.UserID != userID {
		return ErrForbidden
	}
	if session.OTPCode != code {
		return ErrInvalidCode
	}

	consumed, err := s.kv.CompareAndDelete(ctx, store.PrefixDeletion+sessionID, raw)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidSession
	}

	user, found, err := getUser(ctx, s.kv, userID)
	if err != nil {
		return err
	}
	if found {
		keys := []string{store.PrefixUser + userID}
		if user.Phone != "" {
			keys = append(keys, store.PrefixUserPhone+user.Phone)
		}
		if user.Email != "" {
			keys = append(keys, store.PrefixUserEmail+user.Email)
		}
		if err := s.kv.Del(ctx, keys...); err != nil {
			return err
		}

		s.purgeTokens(ctx, userID)

		if user.Avatar != "" && s.blobs != nil {
			if err := s.blobs.Delete(ctx, user.Avatar); err != nil {
				s.logger.Error("Failed to delete avatar blob after account deletion",
					util.String("user_id", userID),
					util.ErrorField(err),
				)
			}
		}
	}

	s.events.Emit(ctx, audit.Event{Type: audit.EventAccountDeleted, UserID: userID})
	s.logger.Info("Account deleted", util.String("user_id", userID))
	return nil
}

// purgeTokens scans the token namespace and deletes every token bound to
// userID. The scan is not isolated from concurrent mints; a token created
// mid-scan for the dying user may survive.
func (s *AccountService) purgeTokens(ctx context.Context, userID string) {
	keys, err := s.kv.Keys(ctx, store.PrefixToken)
	if err != nil {
		s.logger.Error("Token scan failed during account deletion",
			util.String("user_id", userID),
			util.ErrorField(err),
		)
		return
	}

	var revoked atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tokenPurgeConcurrency)

	for _, key := range keys {
		key := key
		g.Go(func() error {
			raw, found, err := s.kv.Get(gctx, key)
			if err != nil || !found {
				return nil
			}
			var claims model.TokenClaims
			if err := json.Unmarshal(raw, &claims); err != nil {
				return nil
			}
			if claims.UserID != userID {
				return nil
			}
			if err := s.kv.Del(gctx, key); err != nil {
				s.logger.Warn("Failed to revoke token during account deletion", util.ErrorField(err))
				return nil
			}
			revoked.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Tokens revoked",
		util.String("user_id", userID),
		util.Int("count", int(revoked.Load())),
	)
}
