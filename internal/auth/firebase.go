package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"google.golang.org/api/option"
)

const ProviderFirebase = "firebase"

// idTokenVerifier is the part of the Firebase auth client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens issued to the web client.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes a Firebase app from a service-account
// credential file. projectID may be empty, in which case it is read from the
// credentials.
func NewFirebaseVerifier(ctx context.Context, credentialsFile, projectID string) (*FirebaseVerifier, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("firebase: credentials file is required")
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: init auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := decoded.Claims["email"].(string)
	email = document.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrInvalidToken)
	}
	return &Identity{UID: decoded.UID, Email: email, Provider: ProviderFirebase}, nil
}
