package service

import (
	"context"
	"encoding/json"
	"fmt"

	"eventconnect-server/internal/model"
	"eventconnect-server/internal/store"
)

// Shared user/token persistence helpers. User records never expire; the
// store's TTL machinery applies only to sessions.

func getUser(ctx context.Context, kv store.KV, userID string) (*model.User, bool, error) {
	raw, ok, err := kv.Get(ctx, store.PrefixUser+userID)
	if err != nil || !ok {
		return nil, false, err
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, false, fmt.Errorf("corrupt user record %s: %w", userID, err)
	}
	return &user, true, nil
}

func getUserByPhone(ctx context.Context, kv store.KV, phone string) (*model.User, bool, error) {
	raw, ok, err := kv.Get(ctx, store.PrefixUserPhone+phone)
	if err != nil || !ok {
		return nil, false, err
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, false, fmt.Errorf("corrupt user index for phone %s: %w", phone, err)
	}
	return &user, true, nil
}

// putUser writes the user record and its lookup indexes. Indexes carry the
// full record so a phone lookup resolves in one read.
func putUser(ctx context.Context, kv store.KV, user *model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := kv.Set(ctx, store.PrefixUser+user.ID, raw, 0); err != nil {
		return err
	}
	if user.Phone != "" {
		if err := kv.Set(ctx, store.PrefixUserPhone+user.Phone, raw, 0); err != nil {
			return err
		}
	}
	if user.Email != "" {
		if err := kv.Set(ctx, store.PrefixUserEmail+user.Email, raw, 0); err != nil {
			return err
		}
	}
	return nil
}

// mintToken issues a fresh access token for userID and persists the
// token-to-user binding without a TTL.
func mintToken(ctx context.Context, kv store.KV, userID string) (string, error) {
	token := NewAccessToken(userID)
	claims, err := json.Marshal(model.TokenClaims{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("marshal token claims: %w", err)
	}
	if err := kv.Set(ctx, store.PrefixToken+token, claims, 0); err != nil {
		return "", err
	}
	return token, nil
}
