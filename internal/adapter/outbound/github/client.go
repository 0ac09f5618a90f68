// Package github retrieves files from GitHub repositories through the gh
// CLI, which carries its own authentication. Sources use the form
// github://owner/repo/path/to/file[@ref].
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Client wraps the gh CLI for repository file access.
type Client struct {
	logger *slog.Logger
}

// NewClient creates a new GitHub client.
func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger.With("component", "github_client")}
}

// fileRef names one file inside a repository at an optional ref.
type fileRef struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// parseSourceURL splits a github:// source into its repository
// components. The optional @ref suffix selects a branch or tag.
func parseSourceURL(source string) (fileRef, error) {
	if !IsGitHubURL(source) {
		return fileRef{}, fmt.Errorf("invalid GitHub URL format: %s", source)
	}

	rest := strings.TrimPrefix(source, "github://")

	var ref string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		ref = rest[at+1:]
		rest = rest[:at]
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fileRef{}, fmt.Errorf("invalid GitHub URL format: expected github://owner/repo/path/to/file, got %s", source)
	}

	return fileRef{Owner: parts[0], Repo: parts[1], Path: parts[2], Ref: ref}, nil
}

// FetchFile retrieves a repository file through the GitHub contents API.
func (c *Client) FetchFile(ctx context.Context, source string) ([]byte, error) {
	ref, err := parseSourceURL(source)
	if err != nil {
		return nil, err
	}
	if err := c.checkCLI(); err != nil {
		return nil, err
	}

	apiPath := fmt.Sprintf("repos/%s/%s/contents/%s", ref.Owner, ref.Repo, ref.Path)
	if ref.Ref != "" {
		apiPath += "?ref=" + ref.Ref
	}
	c.logger.Debug("Fetching file from GitHub", slog.String("api_path", apiPath))

	cmd := exec.CommandContext(ctx, "gh", "api", apiPath, "--jq", ".content")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("gh command failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("gh command failed: %w", err)
	}

	// The contents API returns base64 with embedded line breaks.
	encoded := strings.Map(dropSpace, stdout.String())
	if encoded == "" {
		return nil, fmt.Errorf("empty response from GitHub for %s", source)
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", source, err)
	}
	return content, nil
}

// checkCLI verifies that the gh CLI is installed and authenticated.
func (c *Client) checkCLI() error {
	cmd := exec.Command("gh", "auth", "status")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "not found") || strings.Contains(err.Error(), "executable file not found") {
			return fmt.Errorf("gh CLI is not installed. Please install it from https://cli.github.com/")
		}
		if strings.Contains(stderr.String(), "not logged in") {
			return fmt.Errorf("gh CLI is not authenticated. Please run 'gh auth login' first")
		}
		return fmt.Errorf("gh auth check failed: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

func dropSpace(r rune) rune {
	switch r {
	case ' ', '\t', '\n', '\r':
		return -1
	}
	return r
}

// IsGitHubURL reports whether a source uses the github:// scheme.
func IsGitHubURL(source string) bool {
	return strings.HasPrefix(source, "github://")
}

// LoadConfig fetches a configuration file from GitHub. Used by the
// configuration loader before any logger is configured, so it builds its
// own client.
func LoadConfig(source string) ([]byte, error) {
	client := NewClient(slog.Default())

	content, err := client.FetchFile(context.Background(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config from GitHub: %w", err)
	}
	return content, nil
}
