package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
)

const identityToolkitEndpoint = "https://identitytoolkit.googleapis.com"

// FirebaseAuthenticator creates identities through the Admin SDK and signs
// users in through the Identity Toolkit signInWithPassword endpoint (the
// Admin SDK has no password sign-in).
type FirebaseAuthenticator struct {
	auth     *auth.Client
	apiKey   string
	endpoint string
	http     *http.Client
}

func NewFirebaseAuthenticator(authClient *auth.Client, apiKey string) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{
		auth:     authClient,
		apiKey:   apiKey,
		endpoint: identityToolkitEndpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *FirebaseAuthenticator) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	u, err := f.auth.CreateUser(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &Identity{UID: u.UID, Email: u.Email}, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f *FirebaseAuthenticator) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_WEB_API_KEY is not set")
	}

	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/accounts:signInWithPassword?key=%s", f.endpoint, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		switch msg {
		case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign-in failed: %s", msg)
	}

	return &Identity{
		UID:          out.LocalID,
		Email:        out.Email,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
	}, nil
}

func (f *FirebaseAuthenticator) DeleteIdentity(ctx context.Context, uid string) error {
	return f.auth.DeleteUser(ctx, uid)
}
