package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/0ashutosh1/Project/internal/autherr"
)

func startFake(t *testing.T, me map[string]any) *Provider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-token",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "fb-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(me)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := New("client-id", "client-secret", "http://localhost/callback",
		WithGraphBase(srv.URL),
		WithEndpoint(oauth2.Endpoint{
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestExchangeCode(t *testing.T) {
	p := startFake(t, map[string]any{
		"id":    "900100",
		"name":  "Fran Book",
		"email": "fran@example.com",
		"picture": map[string]any{
			"data": map[string]any{"url": "https://graph.example.com/fran.jpg"},
		},
	})

	identity, err := p.ExchangeCode(context.Background(), "good-code", "")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if identity.ProviderUserID != "900100" {
		t.Errorf("subject = %q", identity.ProviderUserID)
	}
	if identity.Email != "fran@example.com" {
		t.Errorf("email = %q", identity.Email)
	}
	if identity.AvatarURL != "https://graph.example.com/fran.jpg" {
		t.Errorf("avatar = %q", identity.AvatarURL)
	}
}

func TestExchangeCodeMissingEmailPermission(t *testing.T) {
	p := startFake(t, map[string]any{
		"id":   "900100",
		"name": "Fran Book",
	})

	_, err := p.ExchangeCode(context.Background(), "good-code", "")
	if !errors.Is(err, autherr.ErrMissingVerifiedEmail) {
		t.Fatalf("want MissingVerifiedEmail, got %v", err)
	}
}
