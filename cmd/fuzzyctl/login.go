package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/target/fuzzysearch/internal/adapters/oidc"
	"github.com/target/fuzzysearch/internal/client"
)

// savedLogin is what login writes to the token file.
type savedLogin struct {
	TokenURL     string    `json:"token_url"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

type loginOptions struct {
	Issuer       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scopes       string
}

func parseLoginFlags(cc *commandContext, args []string) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Issuer, "issuer", os.Getenv("FUZZYCTL_OIDC_ISSUER"), "OIDC issuer; the token endpoint is discovered")
	fs.StringVar(&opts.TokenURL, "token-url", "", "Token endpoint (skips discovery)")
	fs.StringVar(&opts.ClientID, "client-id", "fuzzysearch", "OAuth2 client id")
	fs.StringVar(&opts.ClientSecret, "client-secret", os.Getenv("FUZZYCTL_CLIENT_SECRET"), "OAuth2 client secret")
	fs.StringVar(&opts.Username, "username", "", "User name or email (required)")
	fs.StringVar(&opts.Password, "password", "", "Password (read from stdin when empty)")
	fs.StringVar(&opts.Scopes, "scopes", "openid profile email offline_access", "Space separated scopes")
	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return loginOptions{}, errors.New("--username is required")
	}
	if opts.Issuer == "" && opts.TokenURL == "" {
		return loginOptions{}, errors.New("one of --issuer or --token-url is required")
	}
	return opts, nil
}

func runLogin(cc *commandContext, args []string) error {
	opts, err := parseLoginFlags(cc, args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readPassword(cc); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cc.Ctx, cc.Config.Timeout)
	defer cancel()

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		provider, discErr := oidc.Discover(ctx, opts.Issuer, &http.Client{Timeout: cc.Config.Timeout})
		if discErr != nil {
			return discErr
		}
		tokenURL = provider.Endpoint().TokenURL
	}

	conf := oauthConfig(tokenURL, opts.ClientID, opts.ClientSecret, strings.Fields(opts.Scopes))
	tok, err := conf.PasswordCredentialsToken(ctx, opts.Username, opts.Password)
	if err != nil {
		return fmt.Errorf("password grant: %w", err)
	}

	login := savedLogin{
		TokenURL:     tokenURL,
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		login.IDToken = id
	}
	if err := saveLogin(cc.Config.TokenFile, login); err != nil {
		return err
	}
	return writef(cc.Stdout, "logged in as %s (token saved to %s)\n", opts.Username, cc.Config.TokenFile)
}

func runLogout(cc *commandContext, _ []string) error {
	err := os.Remove(cc.Config.TokenFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return writef(cc.Stdout, "logged out\n")
}

func readPassword(cc *commandContext) (string, error) {
	if err := writef(cc.Stderr, "Password: "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(cc.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func oauthConfig(tokenURL, clientID, secret string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleAutoDetect},
		Scopes:       scopes,
	}
}

func saveLogin(path string, login savedLogin) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	b, err := json.MarshalIndent(login, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func loadLogin(path string) (savedLogin, error) {
	var login savedLogin
	b, err := os.ReadFile(path)
	if err != nil {
		return login, err
	}
	if err := json.Unmarshal(b, &login); err != nil {
		return login, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return login, nil
}

// idTokenSource presents the ID token as the bearer credential, since the
// server verifies ID tokens. Refreshes go through the wrapped source.
type idTokenSource struct {
	base oauth2.TokenSource
}

func (s idTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	id, ok := tok.Extra("id_token").(string)
	if !ok || id == "" {
		return tok, nil
	}
	return &oauth2.Token{AccessToken: id, TokenType: "Bearer", Expiry: tok.Expiry}, nil
}

// newClient builds an API client from the explicit token or the saved login.
func newClient(cc *commandContext) (*client.Client, error) {
	cfg := client.Config{BaseURL: cc.Config.URL, Timeout: cc.Config.Timeout, Token: cc.Config.Token}
	if cfg.Token != "" {
		return client.New(cfg)
	}

	login, err := loadLogin(cc.Config.TokenFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, errors.New("not logged in: run fuzzyctl login or pass --token")
	case err != nil:
		return nil, err
	}

	tok := (&oauth2.Token{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
		Expiry:       login.Expiry,
	}).WithExtra(map[string]any{"id_token": login.IDToken})
	conf := oauthConfig(login.TokenURL, login.ClientID, login.ClientSecret, nil)
	cfg.TokenSource = oauth2.ReuseTokenSource(nil, idTokenSource{base: conf.TokenSource(cc.Ctx, tok)})
	return client.New(cfg)
}
