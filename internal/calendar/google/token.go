package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	"revive_backend/platform/config"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const calendarScope = "https://www.googleapis.com/auth/calendar"

// StaticToken wraps a pre-issued access token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// NewTokenSource picks the configured credential: a static access token wins over a
// service account key file. It returns nil when neither is set. Service account
// tokens are cached and refreshed by oauth2 before they expire.
func NewTokenSource(ctx context.Context, cfg config.CalendarConfig) (oauth2.TokenSource, error) {
	if token := strings.TrimSpace(cfg.GetCalendarAccessToken()); token != "" {
		return StaticToken(token), nil
	}
	path := strings.TrimSpace(cfg.GetServiceAccountFile())
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	jwtConfig, err := googleoauth.JWTConfigFromJSON(data, calendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	if tokenURL := strings.TrimSpace(cfg.GetCalendarTokenURL()); tokenURL != "" {
		jwtConfig.TokenURL = tokenURL
	}
	return jwtConfig.TokenSource(ctx), nil
}
