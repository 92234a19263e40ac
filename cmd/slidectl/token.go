package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// errServerUnavailable means no control server answered on the configured port
var errServerUnavailable = errors.New("control server is not running")

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show or rotate the access token",
	Long: `Control surfaces authenticate with a shared 8-character access token.
The token is stored in ~/.config/slidectl/token.toml unless auth.token_file
says otherwise.`,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current access token",
	Args:  cobra.NoArgs,
	RunE:  runTokenShow,
}

var tokenRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace the access token",
	Long: `Replace the access token.

When a server is running on this machine it rotates the token itself and
disconnects every authenticated client. Otherwise the stored token is
replaced and the next server start picks it up.`,
	Args: cobra.NoArgs,
	RunE: runTokenRotate,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenShowCmd, tokenRotateCmd)

	tokenRotateCmd.Flags().IntP("port", "p", 0, "Port of the running server (overrides config)")
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	accessToken, err := newTokenStore(cfg).GetOrCreate()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), accessToken)
	return nil
}

func runTokenRotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := newTokenStore(cfg)
	current, err := store.GetOrCreate()
	if err != nil {
		return err
	}

	rotated, err := rotateViaServer(cmd.Context(), serverURL(cfg), current)
	switch {
	case err == nil:
		fmt.Fprintln(cmd.ErrOrStderr(), "Token rotated on the running server; clients were disconnected")
	case errors.Is(err, errServerUnavailable):
		if rotated, err = store.Regenerate(); err != nil {
			return fmt.Errorf("rotating stored token: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Token rotated in %s\n", store.Path())
	default:
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), rotated)
	return nil
}

// rotateViaServer asks a running server at baseURL to rotate its token
func rotateViaServer(ctx context.Context, baseURL, current string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/token/rotate", nil)
	if err != nil {
		return "", fmt.Errorf("building rotate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errServerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding rotate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server refused rotation (%d): %s", resp.StatusCode, body.Error)
	}
	if body.Token == "" {
		return "", errors.New("server returned an empty token")
	}
	return body.Token, nil
}
