package audienceapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dghubble/oauth1"
)

// Credentials - ключи OAuth 1.0a аккаунта.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// NewOAuthHTTPClient возвращает HTTP-клиент, подписывающий каждый запрос ключами аккаунта.
func NewOAuthHTTPClient(ctx context.Context, creds Credentials, timeout time.Duration) *http.Client {
	base := &http.Client{Timeout: timeout}
	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)

	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	client := cfg.Client(ctx, token)
	client.Timeout = timeout
	return client
}
