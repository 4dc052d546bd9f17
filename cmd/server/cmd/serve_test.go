package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/social-events/internal/auth"
	"github.com/Togather-Foundation/social-events/internal/config"
	"github.com/rs/zerolog"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestServeCommandHelp(t *testing.T) {
	cmd := newServeCommand(&rootOptions{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("serve command --help failed: %v", err)
	}

	output := buf.String()
	expectedStrings := []string{
		"Start the social events HTTP server",
		"--host",
		"--port",
		"server host address",
		"server port",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help text to contain %q, got:\n%s", expected, output)
		}
	}
}

func TestServeCommandFlagParsing(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
	}{
		{name: "valid host flag", args: []string{"--host", "127.0.0.1"}},
		{name: "valid port flag", args: []string{"--port", "9090"}},
		{name: "valid host and port", args: []string{"--host", "0.0.0.0", "--port", "8080"}},
		{name: "invalid port value", args: []string{"--port", "invalid"}, expectError: true},
		{name: "unknown flag", args: []string{"--unknown"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeCommand(&rootOptions{})
			err := cmd.ParseFlags(tt.args)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestServeCommandGlobalFlags(t *testing.T) {
	root := NewRootCommand()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"serve", "--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("serve command with global flags failed: %v", err)
	}

	output := buf.String()
	for _, flag := range []string{"--config", "--log-level", "--log-format"} {
		if !strings.Contains(output, flag) {
			t.Errorf("expected help text to contain global flag %q, got:\n%s", flag, output)
		}
	}
}

func setDevEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URI", "mongodb://localhost:27017")
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "")
	t.Setenv("HOST", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setDevEnv(t)

	cfg, err := loadConfig(&rootOptions{})
	if err != nil {
		t.Fatalf("loadConfig should succeed with minimal env vars: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	setDevEnv(t)

	cfg, err := loadConfig(&rootOptions{logLevel: "debug", logFormat: "console"})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected log format 'console', got %s", cfg.Logging.Format)
	}
}

func TestLoadConfigMissingRequiredVars(t *testing.T) {
	tests := []struct {
		name        string
		dbURI       string
		jwtSecret   string
		expectError bool
	}{
		{name: "missing DB_URI", dbURI: "", jwtSecret: testSecret, expectError: true},
		{name: "missing JWT_SECRET", dbURI: "mongodb://localhost", jwtSecret: "", expectError: true},
		{name: "JWT_SECRET too short", dbURI: "mongodb://localhost", jwtSecret: "short", expectError: true},
		{name: "valid config", dbURI: "mongodb://localhost", jwtSecret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDevEnv(t)
			t.Setenv("DB_URI", tt.dbURI)
			t.Setenv("DB_USER", "")
			t.Setenv("DB_PASS", "")
			t.Setenv("DB_HOST", "")
			t.Setenv("JWT_SECRET", tt.jwtSecret)

			_, err := loadConfig(&rootOptions{})

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewVerifier(t *testing.T) {
	cfg := config.Defaults()
	cfg.Auth.Provider = "jwt"
	cfg.Auth.JWTSecret = testSecret

	verifier, err := newVerifier(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newVerifier: %v", err)
	}
	if _, ok := verifier.(*auth.DevVerifier); !ok {
		t.Errorf("expected *auth.DevVerifier, got %T", verifier)
	}

	cfg.Environment = "production"
	if _, err := newVerifier(context.Background(), cfg); err == nil {
		t.Error("expected jwt provider to be refused in production")
	}

	cfg.Environment = "development"
	cfg.Auth.Provider = "firebase"
	cfg.Auth.FirebaseCredentialsFile = ""
	if _, err := newVerifier(context.Background(), cfg); err == nil {
		t.Error("expected firebase without credentials to fail")
	}

	cfg.Auth.Provider = "saml"
	if _, err := newVerifier(context.Background(), cfg); err == nil {
		t.Error("expected unknown provider to fail")
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, zerolog.Nop()) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr)
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
