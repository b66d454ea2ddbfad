// Package types defines shared types for the job queue client.
package types

import (
	"context"
	"errors"
	"time"
)

// Common errors for the job queue client.
var (
	ErrAuthFailed  = errors.New("authentication failed")
	ErrTransport   = errors.New("transport error")
	ErrApplication = errors.New("rpc returned failure")
)

// ClientConfig holds connection settings for the job queue.
type ClientConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	RPCPath  string        // defaults to /transmission/rpc
	Timeout  time.Duration // defaults to 30s
}

// Queue is the subset of job queue operations a reconciliation pass needs.
type Queue interface {
	// GetDownloadDir returns the queue's default destination directory.
	GetDownloadDir(ctx context.Context) (string, error)

	// List returns every job currently known to the queue.
	List(ctx context.Context) ([]DownloadItem, error)

	// Add submits a new job and returns its identifier.
	Add(ctx context.Context, opts *AddOptions) (string, error)
}

// AddOptions specifies options for adding a download.
type AddOptions struct {
	URL         string // URL to the torrent file or magnet link
	DownloadDir string // Override default download directory
	Cookies     string // Cookie header the queue uses to fetch URL
}

// DownloadItem is a job present in the queue.
type DownloadItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DownloadDir string `json:"downloadDir,omitempty"`
}
