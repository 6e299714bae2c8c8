// Package auth signs the board in to the requirements web service. The
// service uses a form login and a session cookie; credentials come from the
// config file or the environment.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Environment variables read by EnvProvider.
const (
	EnvUsername = "REQBOARD_USERNAME"
	EnvPassword = "REQBOARD_PASSWORD"
)

var (
	// ErrNoCredentials indicates no provider had a username and password.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrBadCredentials indicates the service rejected the login.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrNoCookieJar indicates an HTTP client that could not keep a session.
	ErrNoCookieJar = errors.New("http client has no cookie jar")
)

// Credentials are a username and password for the login form.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether either half is missing.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Username) == "" || c.Password == ""
}

// Provider defines the interface for obtaining login credentials.
// Implementations may use different sources (config file, environment, etc).
type Provider interface {
	Credentials() (Credentials, error)
}

// StaticProvider returns fixed credentials, typically from the config file.
type StaticProvider struct {
	Creds Credentials
}

// Credentials returns the fixed credentials, or ErrNoCredentials when they
// are incomplete.
func (s StaticProvider) Credentials() (Credentials, error) {
	if s.Creds.Empty() {
		return Credentials{}, ErrNoCredentials
	}
	return s.Creds, nil
}

// EnvProvider reads REQBOARD_USERNAME and REQBOARD_PASSWORD.
type EnvProvider struct{}

// Credentials reads the environment. Returns an error naming the variables
// if either is unset or empty.
func (EnvProvider) Credentials() (Credentials, error) {
	c := Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
	if c.Empty() {
		return Credentials{}, fmt.Errorf("%w: %s and %s must both be set", ErrNoCredentials, EnvUsername, EnvPassword)
	}
	return c, nil
}

// Resolve tries each provider in order and returns the first complete
// credentials. The error lists why every provider failed.
func Resolve(providers ...Provider) (Credentials, error) {
	var errs []error
	for _, p := range providers {
		c, err := p.Credentials()
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{}, fmt.Errorf(
		"failed to obtain credentials: %w\n"+
			"Please either:\n"+
			"  1. Set the %s and %s environment variables, or\n"+
			"  2. Set username and password in the config file",
		errors.Join(errs...), EnvUsername, EnvPassword,
	)
}

// Login posts the login form and leaves the session cookie in hc's jar.
// The service redirects on success and re-renders the form on failure, so
// redirects are not followed: 3xx means signed in, 200 means rejected.
func Login(ctx context.Context, hc *http.Client, loginURL string, creds Credentials) error {
	if hc == nil || hc.Jar == nil {
		return ErrNoCookieJar
	}
	if creds.Empty() {
		return ErrNoCredentials
	}

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noFollow := *hc
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noFollow.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusOK:
		return fmt.Errorf("%w for %q", ErrBadCredentials, creds.Username)
	default:
		return fmt.Errorf("login failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
}
