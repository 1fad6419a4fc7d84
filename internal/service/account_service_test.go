package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eventconnect-server/internal/model"
	"eventconnect-server/internal/store"
)

type fakeBlobStore struct {
	uploads map[string]string
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{uploads: make(map[string]string)}
}

func (f *fakeBlobStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "https://blobs.test/" + name
	f.uploads[url] = string(data)
	return url, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	delete(f.uploads, url)
	return nil
}

// seedUser provisions a user with a live token, bypassing the OTP flow.
func seedUser(t *testing.T, kv store.KV, phone string) (*model.User, string) {
	t.Helper()
	ctx := context.Background()
	user := &model.User{
		ID:       NewSessionID(),
		Phone:    phone,
		UserType: model.UserTypeIndividual,
	}
	require.NoError(t, putUser(ctx, kv, user))
	token, err := mintToken(ctx, kv, user.ID)
	require.NoError(t, err)
	return user, token
}

func TestGetProfileNotFound(t *testing.T) {
	svc := NewAccountService(store.NewMemoryKV(), nil, nil, nil, zap.NewNop(), true)

	_, err := svc.GetProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfilePartialFields(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	svc := NewAccountService(kv, nil, nil, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220001")

	name := "Ada Lovelace"
	updated, err := svc.UpdateProfile(ctx, user.ID, &model.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", updated.Name)
	require.Equal(t, "+15552220001", updated.Phone, "untouched fields must survive")

	email := "ada@example.com"
	updated, err = svc.UpdateProfile(ctx, user.ID, &model.UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", updated.Name)
	require.Equal(t, "ada@example.com", updated.Email)

	_, found, err := kv.Get(ctx, store.PrefixUserEmail+"ada@example.com")
	require.NoError(t, err)
	require.True(t, found)
}

func TestUpdateProfileEmailChangeDropsOldIndex(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	svc := NewAccountService(kv, nil, nil, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220002")

	first := "old@example.com"
	_, err := svc.UpdateProfile(ctx, user.ID, &model.UpdateProfileRequest{Email: &first})
	require.NoError(t, err)

	second := "new@example.com"
	_, err = svc.UpdateProfile(ctx, user.ID, &model.UpdateProfileRequest{Email: &second})
	require.NoError(t, err)

	_, found, err := kv.Get(ctx, store.PrefixUserEmail+"old@example.com")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = kv.Get(ctx, store.PrefixUserEmail+"new@example.com")
	require.NoError(t, err)
	require.True(t, found)
}

func TestUploadAvatarPersistsURL(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	blobs := newFakeBlobStore()
	svc := NewAccountService(kv, blobs, nil, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220003")

	url, err := svc.UploadAvatar(ctx, user.ID, "photo.png", strings.NewReader("img-bytes"))
	require.NoError(t, err)
	require.Contains(t, url, user.ID)
	require.True(t, strings.HasSuffix(url, ".png"))

	profile, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, url, profile.Avatar)
}

func TestUploadAvatarWithoutBlobStore(t *testing.T) {
	kv := store.NewMemoryKV()
	svc := NewAccountService(kv, nil, nil, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220004")

	_, err := svc.UploadAvatar(context.Background(), user.ID, "photo.png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrBlobStoreUnavailable)
}

func TestDeletionFlow(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	blobs := newFakeBlobStore()
	svc := NewAccountService(kv, blobs, nil, nil, zap.NewNop(), true)
	user, token := seedUser(t, kv, "+15552220005")

	avatarURL, err := svc.UploadAvatar(ctx, user.ID, "face.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)

	challenge, err := svc.RequestDeletion(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.OTPCode)

	// A wrong code rejects the attempt and leaves everything intact.
	wrong := "000000"
	if challenge.OTPCode == wrong {
		wrong = "000001"
	}
	err = svc.ConfirmDeletion(ctx, user.ID, challenge.SessionID, wrong)
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmDeletion(ctx, user.ID, challenge.SessionID, challenge.OTPCode))

	// User record and indexes are gone.
	_, err = svc.GetProfile(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, found, err := kv.Get(ctx, store.PrefixUserPhone+"+15552220005")
	require.NoError(t, err)
	require.False(t, found)

	// Every token bound to the user is revoked.
	_, found, err = kv.Get(ctx, store.PrefixToken+token)
	require.NoError(t, err)
	require.False(t, found)

	// The avatar blob is removed.
	require.Equal(t, []string{avatarURL}, blobs.deleted)

	// The session is consumed: replaying the confirmation fails.
	err = svc.ConfirmDeletion(ctx, user.ID, challenge.SessionID, challenge.OTPCode)
	require.ErrorIs(t, err, ErrInvalidSession)
}

func TestDeletionRevokesAllTokens(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	svc := NewAccountService(kv, nil, nil, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220006")
	other, otherToken := seedUser(t, kv, "+15552220007")

	var tokens []string
	for i := 0; i < 5; i++ {
		token, err := mintToken(ctx, kv, user.ID)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	challenge, err := svc.RequestDeletion(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmDeletion(ctx, user.ID, challenge.SessionID, challenge.OTPCode))

	for _, token := range tokens {
		_, found, err := kv.Get(ctx, store.PrefixToken+token)
		require.NoError(t, err)
		require.False(t, found, "token %s must be revoked", token)
	}

	// Another user's tokens are untouched.
	_, found, err := kv.Get(ctx, store.PrefixToken+otherToken)
	require.NoError(t, err)
	require.True(t, found)
	_, err = svc.GetProfile(ctx, other.ID)
	require.NoError(t, err)
}

func TestConfirmDeletionForeignSession(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	svc := NewAccountService(kv, nil, nil, nil, zap.NewNop(), true)
	victim, _ := seedUser(t, kv, "+15552220008")
	attacker, _ := seedUser(t, kv, "+15552220009")

	challenge, err := svc.RequestDeletion(ctx, victim.ID)
	require.NoError(t, err)

	err = svc.ConfirmDeletion(ctx, attacker.ID, challenge.SessionID, challenge.OTPCode)
	require.ErrorIs(t, err, ErrForbidden)

	// The victim's account survives.
	_, err = svc.GetProfile(ctx, victim.ID)
	require.NoError(t, err)
}

func TestRequestDeletionUsesSMSWhenAvailable(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	notifier := &fakeNotifier{}
	svc := NewAccountService(kv, nil, notifier, nil, zap.NewNop(), true)
	user, _ := seedUser(t, kv, "+15552220010")

	challenge, err := svc.RequestDeletion(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, challenge.OTPCode, "delivered codes must never appear in the response")
	require.Equal(t, []string{"+15552220010"}, notifier.to)
	require.Contains(t, notifier.sent[0], "deletion code")
}
