package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail API client
type Client struct {
	service      *gmail.Service
	userID       string
	from         string
	fromName     string
	interval     time.Duration
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client using an existing OAuth token.
// userID is usually "me"; from is the address messages are sent as.
func NewClient(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token, userID, from, fromName string) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		service:  service,
		userID:   userID,
		from:     from,
		fromName: fromName,
		interval: EmailInterval,
	}, nil
}
