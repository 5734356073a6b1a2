// Package generator drives an ad video from request to downloaded file:
// it validates the request, submits it, polls until the upstream reports a
// terminal state and downloads the result.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/maauso/adgen/internal/captions"
)

const (
	// DefaultPollInterval is the fixed delay between non-terminal status checks.
	DefaultPollInterval = 10 * time.Second
	// DefaultTimeout is the wait budget across the whole polling loop.
	DefaultTimeout = 300 * time.Second
	// DefaultOutputDir is used when a Request names no output directory.
	DefaultOutputDir = "./generated_videos"
)

// Request contains the parameters of one ad video generation.
type Request struct {
	Script      string
	CreatorName string
	MediaURLs   []string // captions.DefaultMediaURL is used when empty
	Resolution  string   // fhd, hd or 4k, case-insensitive
	WebhookID   string   // Optional
	OutputDir   string   // DefaultOutputDir when empty
	Filename    string   // Derived from creator, resolution and time when empty
}

// Generator runs the generation workflow against a captions.Client.
// A Generator keeps no per-job state; one instance may drive several jobs
// from separate goroutines.
type Generator struct {
	client       captions.Client
	logger       *slog.Logger
	validate     *validator.Validate
	pollInterval time.Duration
	timeout      time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option is a function that configures a Generator.
type Option func(*Generator)

// WithPollInterval sets the delay between status checks.
func WithPollInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithTimeout sets the wait budget for WaitForCompletion.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithSleeper replaces the context-aware sleep between polls.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// New creates a Generator backed by client.
func New(client captions.Client, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &Generator{
		client:       client,
		logger:       logger,
		validate:     NewValidator(),
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAdVideo runs the full workflow and returns the path of the
// downloaded video. Nothing is written to the output directory unless the
// upstream reports success.
func (g *Generator) GenerateAdVideo(ctx context.Context, req Request) (string, error) {
	logger := g.logger.With(slog.String("run_id", uuid.NewString()))

	if err := g.validateRequest(req); err != nil {
		return "", err
	}
	resolution, _ := captions.ParseResolution(req.Resolution)

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return "", &captions.Error{
			Kind:   captions.KindConfiguration,
			Op:     "generate",
			Detail: "create output directory " + outputDir,
			Err:    err,
		}
	}

	filename := Filename(req.CreatorName, string(resolution), g.now())
	if req.Filename != "" {
		filename = sanitizeFilename(filepath.Base(req.Filename))
		if filename == "" || filename == "." || filename == ".." {
			return "", &captions.Error{
				Kind:   captions.KindValidation,
				Op:     "generate",
				Detail: fmt.Sprintf("invalid filename %q", req.Filename),
			}
		}
	}
	outputPath := filepath.Join(outputDir, filename)

	logger.Info("generating ad video",
		slog.String("creator", req.CreatorName),
		slog.String("resolution", string(resolution)),
		slog.String("path", outputPath),
	)

	operationID, err := g.client.Submit(ctx, captions.SubmitRequest{
		Script:      req.Script,
		CreatorName: req.CreatorName,
		MediaURLs:   req.MediaURLs,
		Resolution:  resolution,
		WebhookID:   req.WebhookID,
	})
	if err != nil {
		logger.Error("submit failed", slog.String("error", err.Error()))
		return "", err
	}
	logger = logger.With(slog.String("operation_id", operationID))

	videoURL, err := g.waitForCompletion(ctx, logger, operationID)
	if err != nil {
		logger.Error("video generation failed", slog.String("error", err.Error()))
		return "", err
	}

	finalPath, err := g.client.Download(ctx, videoURL, outputPath)
	if err != nil {
		logger.Error("download failed", slog.String("error", err.Error()))
		return "", withOperation(err, operationID)
	}

	logger.Info("video generation completed", slog.String("path", finalPath))
	return finalPath, nil
}

// withOperation attaches operationID to a captions error that lacks one, so
// the job can still be looked up with GetGenerationStatus.
func withOperation(err error, operationID string) error {
	var apiErr *captions.Error
	if errors.As(err, &apiErr) && apiErr.OperationID == "" {
		apiErr.OperationID = operationID
	}
	return err
}

// WaitForCompletion polls operationID until it reaches a terminal state or
// the wait budget is spent, and returns the video URL.
func (g *Generator) WaitForCompletion(ctx context.Context, operationID string) (string, error) {
	return g.waitForCompletion(ctx, g.logger.With(slog.String("operation_id", operationID)), operationID)
}

// waitForCompletion checks the budget before every poll, so a poll in
// flight is never cut short but none is started once the budget is spent.
// COMPLETE without a URL and unknown states are fatal.
func (g *Generator) waitForCompletion(ctx context.Context, logger *slog.Logger, operationID string) (string, error) {
	const op = "wait"
	start := g.now()

	for {
		elapsed := g.now().Sub(start)
		if elapsed > g.timeout {
			return "", &captions.Error{
				Kind:        captions.KindTimeout,
				Op:          op,
				OperationID: operationID,
				Detail:      fmt.Sprintf("timed out after %s (budget %s)", elapsed.Round(time.Millisecond), g.timeout),
			}
		}

		status, err := g.client.Poll(ctx, operationID)
		if err != nil {
			return "", err
		}

		logger.Info("job status",
			slog.String("state", string(status.State)),
			slog.Duration("elapsed", elapsed),
		)

		switch {
		case status.State == captions.StateComplete:
			if status.URL == "" {
				return "", &captions.Error{
					Kind:        captions.KindProtocol,
					Op:          op,
					OperationID: operationID,
					Detail:      "job completed but no result URL received",
				}
			}
			return status.URL, nil

		case status.State == captions.StateFailed:
			detail := status.Error
			if detail == "" {
				detail = "unknown error"
			}
			return "", &captions.Error{
				Kind:        captions.KindJobFailed,
				Op:          op,
				OperationID: operationID,
				Detail:      detail,
			}

		case status.State.IsInProgress():
			if err := g.sleep(ctx, g.pollInterval); err != nil {
				return "", &captions.Error{
					Kind:        captions.KindCanceled,
					Op:          op,
					OperationID: operationID,
					Err:         err,
				}
			}

		default:
			return "", &captions.Error{
				Kind:        captions.KindProtocol,
				Op:          op,
				OperationID: operationID,
				Detail:      fmt.Sprintf("unrecognized job state %q", status.State),
			}
		}
	}
}

// ListCreators returns the creators supported by the upstream.
func (g *Generator) ListCreators(ctx context.Context) (captions.Creators, error) {
	return g.client.ListCreators(ctx)
}

// GetGenerationStatus returns the current status of operationID.
func (g *Generator) GetGenerationStatus(ctx context.Context, operationID string) (captions.PollResult, error) {
	return g.client.Poll(ctx, operationID)
}

// CheckCredits is a no-op: the upstream exposes no balance endpoint.
// Insufficient balance surfaces as captions.ErrBilling from Submit instead.
func (g *Generator) CheckCredits(_ context.Context) error {
	g.logger.Debug("skipping credits check: balance endpoint not available")
	return nil
}

// Filename derives the default output filename for a job started at t.
func Filename(creatorName, resolution string, t time.Time) string {
	name := fmt.Sprintf("ai_ad_%s_%s_%s.mp4", creatorName, resolution, t.Format("20060102_150405"))
	return sanitizeFilename(name)
}

// sanitizeFilename drops every character outside [A-Za-z0-9._-].
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, name)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
