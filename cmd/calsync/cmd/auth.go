package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"google.golang.org/api/calendar/v3"

	"github.com/inkwell/calsync/internal/core"
)

const (
	redirectPort = "8085"
	redirectURL  = "http://localhost:" + redirectPort + "/callback"
)

var authCmd = &cobra.Command{
	Use:   "auth <provider>",
	Short: "Authenticate a calendar provider",
	Long: `Authenticate one configured provider.

For Google and Outlook:
  1. Starts a local server to receive the OAuth callback
  2. Opens your browser to sign in
  3. Saves the token for future use

For CalDAV the stored username/password are validated against the server.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{core.ProviderGoogle, core.ProviderOutlook, core.ProviderCalDAV},
	RunE:      runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	name := args[0]
	provider, ok := coord.Provider(name)
	if !ok {
		return fmt.Errorf("provider %q is not configured; add it to the providers file first", name)
	}
	creds := provider.Credentials

	switch name {
	case core.ProviderGoogle:
		tok, err := googleOAuthToken(creds)
		if err != nil {
			return err
		}
		creds.Token = tok
	case core.ProviderOutlook:
		tok, err := outlookOAuthToken(creds)
		if err != nil {
			return err
		}
		creds.Token = tok
	case core.ProviderCalDAV:
		// Basic auth, nothing interactive; AuthenticateProvider validates.
	default:
		return fmt.Errorf("unknown provider: %s", name)
	}

	if err := coord.AuthenticateProvider(cmd.Context(), name, creds); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if creds.Token != nil && creds.TokenFile != "" {
		if err := saveToken(expandPath(creds.TokenFile), creds.Token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Printf("📁 Token saved to %s\n", creds.TokenFile)
	}

	fmt.Println(okStyle.Render("✅ Authentication successful!"))
	return nil
}

func googleOAuthToken(creds core.Credentials) (*oauth2.Token, error) {
	b, err := os.ReadFile(expandPath(creds.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := oauthgoogle.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	config.RedirectURL = redirectURL

	return tokenViaLocalServer(config, "Google", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func outlookOAuthToken(creds core.Credentials) (*oauth2.Token, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("client_id not configured for the outlook provider")
	}
	tenantID := creds.TenantID
	if tenantID == "" {
		tenantID = "common"
	}

	config := &oauth2.Config{
		ClientID:    creds.ClientID,
		Endpoint:    microsoft.AzureADEndpoint(tenantID),
		RedirectURL: redirectURL,
		Scopes: []string{
			"https://graph.microsoft.com/Calendars.ReadWrite",
			"https://graph.microsoft.com/User.Read",
			"offline_access",
		},
	}

	return tokenViaLocalServer(config, "Microsoft", oauth2.SetAuthURLParam("prompt", "consent"))
}

func tokenViaLocalServer(config *oauth2.Config, providerName string, authOpts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	server := &http.Server{Addr: ":" + redirectPort}
	mux := http.NewServeMux()

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errMsg := r.URL.Query().Get("error")
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			errChan <- fmt.Errorf("authorization failed: %s", errMsg)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `
			<!DOCTYPE html>
			<html>
			<head>
				<title>Authorization Successful</title>
				<style>
					body { font-family: -apple-system, sans-serif; display: flex;
					       justify-content: center; align-items: center; height: 100vh;
					       margin: 0; background: #1a1a1a; color: #fff; }
					.card { background: #2d2d2d; padding: 40px; border-radius: 12px;
					        box-shadow: 0 2px 10px rgba(0,0,0,0.3); text-align: center; }
					h1 { color: #4ade80; margin-bottom: 10px; }
					p { color: #a1a1aa; }
				</style>
			</head>
			<body>
				<div class="card">
					<h1>Authorization Successful</h1>
					<p>You can close this window and return to the terminal.</p>
				</div>
			</body>
			</html>
		`)

		codeChan <- code
	})

	server.Handler = mux

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	authURL := config.AuthCodeURL("state-token", authOpts...)

	fmt.Printf("🔐 Opening browser for %s authorization...\n\n", providerName)

	if err := openBrowser(authURL); err != nil {
		fmt.Println("⚠️  Couldn't open browser automatically.")
		fmt.Println("   Please open this URL manually:")
		fmt.Println(authURL)
	}

	fmt.Println("⏳ Waiting for authorization...")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		server.Shutdown(context.Background())
		return nil, err
	case <-time.After(5 * time.Minute):
		server.Shutdown(context.Background())
		return nil, fmt.Errorf("timeout waiting for authorization")
	}

	server.Shutdown(context.Background())

	tok, err := config.Exchange(context.Background(), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return tok, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
