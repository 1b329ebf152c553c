package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"weddinglink/internal/domain/entity"
	"weddinglink/pkg/errors"
)

// FirebaseAuthClient resolves a session token into the identity the
// messaging core runs as. Identity is consumed here, never owned: the
// marketplace's auth service issues the tokens.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// ResolveSession verifies an ID token and returns the session user. The
// marketplace role ("vendor" or "client") travels as a custom claim.
func (f *FirebaseAuthClient) ResolveSession(ctx context.Context, idToken string) (entity.User, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return entity.User{}, errors.Auth("Invalid or expired session token", err)
	}

	user := entity.User{ID: token.UID}
	if role, ok := token.Claims["role"].(string); ok {
		user.Role = role
	}

	record, err := f.client.GetUser(ctx, token.UID)
	if err != nil {
		// The token alone is enough to operate; profile fields only
		// feed name resolution fallbacks.
		return user, nil
	}
	user.Name = record.DisplayName
	user.Email = record.Email
	return user, nil
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", errors.Auth("Invalid or expired session token", err)
	}
	return token.UID, nil
}
