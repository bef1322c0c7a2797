// Copyright 2024-2026 Aiku AI

// Command github-payload-sender replays recorded GitHub webhook payloads
// against a running relay. The event type is taken from the file name up to
// the first dash, so "push-tag.json" is sent as a "push" event.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	flag "maunium.net/go/mauflag"

	"github.com/aiku/hookrelay/pkg/config"
	"github.com/aiku/hookrelay/pkg/signing"
	"github.com/aiku/hookrelay/pkg/webhooks"
)

const defaultURL = "http://127.0.0.1:1234/api/webhooks/github"

var (
	secretFlag  = flag.MakeFull("s", "github-secret", "GitHub secret used to sign the payloads.", "").String()
	configPath  = flag.MakeFull("c", "config", "Relay config file to read github_secret from.", "").String()
	targetURL   = flag.MakeFull("u", "url", "URL to send the webhooks to.", defaultURL).String()
	wantHelp, _ = flag.MakeHelpFlag()
)

var errSecretSource = errors.New("exactly one of --github-secret and --config is required")

func main() {
	flag.SetHelpTitles(
		"github-payload-sender - replay signed GitHub webhooks.",
		"github-payload-sender [-h] (-s <secret> | -c <path>) [-u <url>] <payload-file>...",
	)
	if err := flag.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		os.Exit(1)
	} else if *wantHelp {
		flag.PrintHelp()
		os.Exit(0)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	secret, err := resolveSecret(*secretFlag, *configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("No signing secret")
	}
	files := flag.Args()
	if len(files) == 0 {
		flag.PrintHelp()
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	failed := false
	for _, path := range files {
		if err := sendFile(context.Background(), client, *targetURL, secret, path); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to send payload")
			failed = true
			continue
		}
		log.Info().Str("file", path).Str("event", eventType(path)).Msg("Payload sent")
	}
	if failed {
		os.Exit(1)
	}
}

func resolveSecret(secret, cfgPath string) (string, error) {
	if (secret == "") == (cfgPath == "") {
		return "", errSecretSource
	}
	if secret != "" {
		return secret, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", err
	}
	return cfg.GitHubSecret, nil
}

// eventType returns the file's base name without extension, cut at the first dash.
func eventType(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	kind, _, _ := strings.Cut(name, "-")
	return kind
}

func sendFile(ctx context.Context, client *http.Client, url, secret, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := json.Compact(&body, raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	req, err := newRequest(ctx, url, secret, eventType(path), body.Bytes())
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send to %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay answered %s", resp.Status)
	}
	return nil
}

func newRequest(ctx context.Context, url, secret, event string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhooks.HeaderGitHubEvent, event)
	req.Header.Set(webhooks.HeaderGitHubSignature, signing.Sign(secret, body))
	return req, nil
}
