package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-1",
		RedirectURL: "https://freeindiatools.example/auth/google/callback",
	})

	loginURL := p.GetLoginURL("state-abc")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "client-1")
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-abc")
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
	}
	if !strings.Contains(q.Get("scope"), "email") || !strings.Contains(q.Get("scope"), "profile") {
		t.Errorf("scope = %q, want email and profile", q.Get("scope"))
	}
}

func TestGoogleOAuthProvider_ExchangeCode(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request form: %v", err)
		}
		if got := r.FormValue("code"); got != "auth-code" {
			t.Errorf("code = %q, want %q", got, "auth-code")
		}
		if got := r.FormValue("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want %q", got, "authorization_code")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token-xyz","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-xyz" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token-xyz")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"108123","email":"asha@gmail.com","name":"Asha Gupta","picture":"https://lh3.example/photo.jpg"}`))
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://freeindiatools.example/auth/google/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	ident, err := p.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if ident.UID != "google:108123" {
		t.Errorf("UID = %q, want %q", ident.UID, "google:108123")
	}
	if ident.Email != "asha@gmail.com" {
		t.Errorf("Email = %q, want %q", ident.Email, "asha@gmail.com")
	}
	if ident.DisplayName != "Asha Gupta" {
		t.Errorf("DisplayName = %q, want %q", ident.DisplayName, "Asha Gupta")
	}
	if ident.PhotoURL != "https://lh3.example/photo.jpg" {
		t.Errorf("PhotoURL = %q, want %q", ident.PhotoURL, "https://lh3.example/photo.jpg")
	}
}

func TestGoogleOAuthProvider_ExchangeCode_TokenError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{TokenURL: tokenServer.URL})

	if _, err := p.ExchangeCode(context.Background(), "expired-code"); err == nil {
		t.Fatal("expected error for rejected code")
	}
}

func TestGoogleOAuthProvider_ExchangeCode_EmptySub(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"token-xyz"}`))
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"x@gmail.com"}`))
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	if _, err := p.ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Fatal("expected error for user info without sub")
	}
}
