package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/inkwell/calsync/internal/core"
)

// tokenCredential bridges our saved OAuth2 token into the Azure SDK's
// TokenCredential interface, allowing the Microsoft Graph SDK to
// authenticate requests.
type tokenCredential struct {
	adapter *OutlookAdapter
}

func (c *tokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.adapter.accessToken(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	c.adapter.tokenMu.Lock()
	expiry := c.adapter.token.Expiry
	c.adapter.tokenMu.Unlock()
	return azcore.AccessToken{
		Token:     tok,
		ExpiresOn: expiry,
	}, nil
}

// OutlookAdapter implements the calendar capability set for Microsoft
// Outlook / Office 365 using the official Microsoft Graph SDK.
type OutlookAdapter struct {
	name        string
	displayName string
	calendarID  string

	clientID  string
	tenantID  string
	tokenFile string

	token     *oauth2.Token
	tokenMu   sync.Mutex
	client    *msgraphsdk.GraphServiceClient
	connected bool
	logger    *zap.Logger
}

func NewOutlookAdapter(logger *zap.Logger) *OutlookAdapter {
	return &OutlookAdapter{
		name:        core.ProviderOutlook,
		displayName: "Outlook Calendar",
		tenantID:    "common",
		logger:      logger.Named("outlook"),
	}
}

func (o *OutlookAdapter) Name() string        { return o.name }
func (o *OutlookAdapter) DisplayName() string { return o.displayName }

// OAuthConfig returns the OAuth2 configuration for the Microsoft identity
// platform. Used by the auth command to run the initial OAuth flow.
func (o *OutlookAdapter) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    o.clientID,
		Endpoint:    microsoft.AzureADEndpoint(o.tenantID),
		RedirectURL: "http://localhost:8085/callback",
		Scopes: []string{
			"https://graph.microsoft.com/Calendars.ReadWrite",
			"https://graph.microsoft.com/User.Read",
			"offline_access",
		},
	}
}

// Authenticate loads the OAuth token from the credentials, builds the
// Graph client and validates it with one cheap read.
func (o *OutlookAdapter) Authenticate(ctx context.Context, creds core.Credentials) error {
	if creds.ClientID != "" {
		o.clientID = creds.ClientID
	}
	if creds.TenantID != "" {
		o.tenantID = creds.TenantID
	}
	o.tokenFile = creds.TokenFile
	o.calendarID = creds.CalendarID

	tok := creds.Token
	if tok == nil && creds.TokenFile != "" {
		var err error
		tok, err = tokenFromFile(creds.TokenFile)
		if err != nil {
			return &core.AuthError{Provider: o.name, Err: fmt.Errorf("read token file: %w", err)}
		}
	}
	if tok == nil || tok.AccessToken == "" {
		return &core.AuthError{Provider: o.name, Err: fmt.Errorf("no access token supplied")}
	}
	o.token = tok

	cred := &tokenCredential{adapter: o}
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return &core.AuthError{Provider: o.name, Err: fmt.Errorf("create graph client: %w", err)}
	}
	o.client = client

	// One cheap read-only call to prove the credentials work.
	if _, err := client.Me().Calendar().Get(ctx, nil); err != nil {
		o.connected = false
		return &core.AuthError{Provider: o.name, Err: err}
	}

	o.connected = true
	return nil
}

// IsAuthenticated re-validates the connection with a fresh cheap call.
func (o *OutlookAdapter) IsAuthenticated(ctx context.Context) bool {
	if !o.connected || o.client == nil {
		return false
	}
	if _, err := o.client.Me().Calendar().Get(ctx, nil); err != nil {
		o.logger.Warn("authentication check failed", zap.Error(err))
		o.connected = false
		return false
	}
	return true
}

// Disconnect clears token and client state. Safe to call twice.
func (o *OutlookAdapter) Disconnect(ctx context.Context) error {
	o.tokenMu.Lock()
	o.token = nil
	o.tokenMu.Unlock()
	o.client = nil
	o.connected = false
	return nil
}

// accessToken returns a valid access token, refreshing if expired.
func (o *OutlookAdapter) accessToken(ctx context.Context) (string, error) {
	o.tokenMu.Lock()
	defer o.tokenMu.Unlock()

	if o.token == nil {
		return "", core.ErrNotConnected
	}
	if o.token.Valid() {
		return o.token.AccessToken, nil
	}

	// Token expired — refresh it
	src := o.OAuthConfig().TokenSource(ctx, o.token)
	newTok, err := src.Token()
	if err != nil {
		return "", &core.AuthError{Provider: o.name, Err: fmt.Errorf("token refresh failed: %w", err)}
	}

	o.token = newTok

	// Persist the refreshed token
	if o.tokenFile != "" {
		if f, err := os.Create(o.tokenFile); err == nil {
			json.NewEncoder(f).Encode(newTok)
			f.Close()
		}
	}

	return newTok.AccessToken, nil
}
