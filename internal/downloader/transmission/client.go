// Package transmission implements a Transmission RPC client.
package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream/feedgrab/internal/downloader/types"
)

const (
	sessionIDHeader = "X-Transmission-Session-Id"
	defaultRPCPath  = "/transmission/rpc"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 * 1024 * 1024
)

// errNeedsSession is returned by post when the server asked for a new session id.
var errNeedsSession = errors.New("session id required")

// Config holds the configuration for a Transmission client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	RPCPath  string
	Timeout  time.Duration
}

// Client talks to the Transmission RPC endpoint. It owns the session id for
// its own lifetime and is not safe for concurrent use.
type Client struct {
	config     Config
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger

	sessionID string
	state     SessionState
}

// Compile-time check that Client implements Queue.
var _ types.Queue = (*Client)(nil)

// New creates a new Transmission client.
func New(cfg *Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rpcPath := cfg.RPCPath
	if rpcPath == "" {
		rpcPath = defaultRPCPath
	}
	if !strings.HasPrefix(rpcPath, "/") {
		rpcPath = "/" + rpcPath
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return &Client{
		config:     *cfg,
		endpoint:   fmt.Sprintf("%s://%s:%d%s", scheme, cfg.Host, cfg.Port, rpcPath),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "transmission").Logger(),
	}
}

// NewFromConfig creates a client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig, logger zerolog.Logger) *Client {
	return New(&Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		UseSSL:   cfg.UseSSL,
		RPCPath:  cfg.RPCPath,
		Timeout:  cfg.Timeout,
	}, logger)
}

// State returns the current session state.
func (c *Client) State() SessionState {
	return c.state
}

// Response is a decoded RPC response whose result was "success".
type Response struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// DecodeArguments unmarshals the response arguments into v.
func (r *Response) DecodeArguments(v any) error {
	if len(r.Arguments) == 0 {
		return fmt.Errorf("%w: response has no arguments", types.ErrTransport)
	}
	if err := json.Unmarshal(r.Arguments, v); err != nil {
		return fmt.Errorf("%w: failed to decode arguments: %v", types.ErrTransport, err)
	}
	return nil
}

type rpcRequest struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Call sends one RPC request. A 409 reply is answered by adopting the new
// session id and resending the same request once. A resend that fails for any
// reason, a 409 without a session id, or a 401 moves the client to
// StateRejected for good.
func (c *Client) Call(ctx context.Context, method string, args map[string]any) (*Response, error) {
	if c.state == StateRejected {
		return nil, fmt.Errorf("%w: session was rejected earlier in this run", types.ErrAuthFailed)
	}

	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if errors.Is(err, errNeedsSession) {
		c.logger.Debug().Str("method", method).Msg("session id refreshed, resending request")
		resp, err = c.post(ctx, body)
		switch {
		case errors.Is(err, errNeedsSession):
			c.reject()
			return nil, fmt.Errorf("%w: %s still refused after session refresh", types.ErrAuthFailed, method)
		case err != nil:
			c.reject()
			if errors.Is(err, types.ErrAuthFailed) {
				return nil, fmt.Errorf("%s: %w", method, err)
			}
			return nil, fmt.Errorf("%w: %s failed after session refresh: %w", types.ErrAuthFailed, method, err)
		}
	}
	if err != nil {
		if errors.Is(err, types.ErrAuthFailed) {
			c.reject()
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return resp, nil
}

func (c *Client) reject() {
	c.state = StateRejected
	c.sessionID = ""
}

func (c *Client) post(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionIDHeader, c.sessionID)
	}
	if c.config.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.config.Username + ":" + c.config.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", types.ErrTransport, err)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		token := sessionToken(resp.Header, respBody)
		if token == "" {
			return nil, fmt.Errorf("%w: received 409 but no session id in response", types.ErrAuthFailed)
		}
		c.sessionID = token
		c.state = StateAuthenticated
		return nil, errNeedsSession
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", types.ErrAuthFailed, resp.StatusCode)
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("%w: unexpected status code: %d", types.ErrTransport, resp.StatusCode)
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", types.ErrTransport, err)
	}
	if rpcResp.Result != "success" {
		return nil, fmt.Errorf("%w: %q", types.ErrApplication, rpcResp.Result)
	}

	c.state = StateAuthenticated
	return &rpcResp, nil
}

// Test verifies the client connection.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.Call(ctx, "session-get", map[string]any{"fields": []string{"version"}})
	return err
}

// GetDownloadDir returns the default download directory from Transmission.
func (c *Client) GetDownloadDir(ctx context.Context) (string, error) {
	resp, err := c.Call(ctx, "session-get", map[string]any{"fields": []string{"download-dir"}})
	if err != nil {
		return "", err
	}

	var args struct {
		DownloadDir string `json:"download-dir"`
	}
	if err := resp.DecodeArguments(&args); err != nil {
		return "", err
	}
	if args.DownloadDir == "" {
		return "", fmt.Errorf("%w: download-dir not found in session response", types.ErrTransport)
	}

	return args.DownloadDir, nil
}

type torrent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	HashString  string `json:"hashString"`
	DownloadDir string `json:"downloadDir"`
}

// List returns all torrents.
func (c *Client) List(ctx context.Context) ([]types.DownloadItem, error) {
	resp, err := c.Call(ctx, "torrent-get", map[string]any{
		"fields": []string{"id", "name", "hashString", "downloadDir"},
	})
	if err != nil {
		return nil, err
	}

	var args struct {
		Torrents []torrent `json:"torrents"`
	}
	if err := resp.DecodeArguments(&args); err != nil {
		return nil, err
	}

	items := make([]types.DownloadItem, 0, len(args.Torrents))
	for _, t := range args.Torrents {
		items = append(items, types.DownloadItem{
			ID:          torrentID(&t),
			Name:        t.Name,
			DownloadDir: t.DownloadDir,
		})
	}

	return items, nil
}

// Add adds a torrent to the client.
func (c *Client) Add(ctx context.Context, opts *types.AddOptions) (string, error) {
	if opts.URL == "" {
		return "", fmt.Errorf("torrent-add: URL must be provided")
	}

	args := map[string]any{
		"filename": opts.URL,
	}
	if opts.DownloadDir != "" {
		args["download-dir"] = opts.DownloadDir
	}
	if opts.Cookies != "" {
		args["cookies"] = opts.Cookies
	}

	resp, err := c.Call(ctx, "torrent-add", args)
	if err != nil {
		return "", err
	}

	var added struct {
		Added     *torrent `json:"torrent-added"`
		Duplicate *torrent `json:"torrent-duplicate"`
	}
	if err := resp.DecodeArguments(&added); err != nil {
		return "", err
	}

	switch {
	case added.Added != nil:
		return torrentID(added.Added), nil
	case added.Duplicate != nil:
		c.logger.Debug().Str("name", added.Duplicate.Name).Msg("torrent already present in queue")
		return torrentID(added.Duplicate), nil
	default:
		return "", fmt.Errorf("%w: could not extract torrent ID from response", types.ErrTransport)
	}
}

func torrentID(t *torrent) string {
	if t.HashString != "" {
		return t.HashString
	}
	return strconv.FormatInt(t.ID, 10)
}
