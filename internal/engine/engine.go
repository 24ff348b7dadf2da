// Package engine wraps the external media extraction capability.
package engine

import (
	"context"

	"github.com/veranemoloko/video-downloader/internal/domain"
)

// Request describes one extraction job.
type Request struct {
	URL          string
	DownloadType domain.DownloadType
	Quality      domain.Quality
	// OutputDir is where the engine writes the file.
	OutputDir string
	// FilePrefix must start the name of every file the engine writes.
	FilePrefix string
}

// Result is what a successful extraction produced.
type Result struct {
	Filename  string
	Title     string
	Duration  int
	Format    string
	Thumbnail string
	SourceURL string
}

// Engine downloads media for a URL. Implementations may fail with any error;
// callers classify it with Classify.
type Engine interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Extract(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
