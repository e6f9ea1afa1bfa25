package calendarclient

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mfleming/demoroster/internal/config"
	"github.com/mfleming/demoroster/pkg/utils"
)

// Client wraps the Google Calendar API client for one target calendar
type Client struct {
	service    *calendar.Service
	calendarID string
}

// NewClient creates a new Calendar client using an existing OAuth token
// The token should already contain the calendar events scope
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token, calendarID string) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	httpClient := oauthConfig.Client(ctx, token)

	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
	}, nil
}
