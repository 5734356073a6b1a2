package generator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/adgen/internal/captions"
)

// mockClient is a testify mock of captions.Client.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Submit(ctx context.Context, req captions.SubmitRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockClient) Poll(ctx context.Context, operationID string) (captions.PollResult, error) {
	args := m.Called(ctx, operationID)
	return args.Get(0).(captions.PollResult), args.Error(1)
}

func (m *mockClient) ListCreators(ctx context.Context) (captions.Creators, error) {
	args := m.Called(ctx)
	return args.Get(0).(captions.Creators), args.Error(1)
}

func (m *mockClient) Download(ctx context.Context, rawURL, destPath string) (string, error) {
	args := m.Called(ctx, rawURL, destPath)
	return args.String(0), args.Error(1)
}

// fakeClock advances only when the generator sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestGenerator(client captions.Client, clock *fakeClock, opts ...Option) *Generator {
	opts = append([]Option{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	return New(client, nil, opts...)
}

func TestValidateInputs_Resolution(t *testing.T) {
	g := New(&mockClient{}, nil)

	for _, res := range []string{"fhd", "hd", "4k", "FHD", "Hd", "4K"} {
		t.Run("valid "+res, func(t *testing.T) {
			assert.NoError(t, g.ValidateInputs("A long enough script", "Kate", res))
		})
	}
	for _, res := range []string{"", "sd", "8k", "1080p", "uhd", " fhd "} {
		t.Run("invalid "+res, func(t *testing.T) {
			err := g.ValidateInputs("A long enough script", "Kate", res)
			require.Error(t, err)
			assert.ErrorIs(t, err, captions.ErrValidation)
			assert.Contains(t, err.Error(), "invalid resolution")
		})
	}
}

func TestValidateInputs_ScriptLength(t *testing.T) {
	g := New(&mockClient{}, nil)

	tests := []struct {
		name   string
		script string
		valid  bool
	}{
		{name: "empty", script: "", valid: false},
		{name: "nine chars", script: "123456789", valid: false},
		{name: "padded nine chars", script: "   123456789\n\t", valid: false},
		{name: "ten chars", script: "1234567890", valid: true},
		{name: "padded ten chars", script: "  !!!!!!!!!!  ", valid: true},
		{name: "multibyte nine chars", script: "ééééééééé", valid: false},
		{name: "long", script: "Try the new running shoe that makes every mile lighter.", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidateInputs(tt.script, "Kate", "fhd")
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, captions.ErrValidation)
			assert.Contains(t, err.Error(), "at least 10 characters")
		})
	}
}

func TestValidateInputs_CreatorName(t *testing.T) {
	g := New(&mockClient{}, nil)

	err := g.ValidateInputs("A long enough script", "   ", "fhd")
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrValidation)
	assert.Contains(t, err.Error(), "creator name is required")
}

func TestValidateInputs_ReportsAllFields(t *testing.T) {
	g := New(&mockClient{}, nil)

	err := g.ValidateInputs("short", "", "8k")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "script")
	assert.Contains(t, msg, "creator name")
	assert.Contains(t, msg, "resolution")
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	name := Filename("Jane's Ad!", "fhd", ts)

	assert.Equal(t, "ai_ad_JanesAd_fhd_20250102_030405.mp4", name)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9._-]+$`), name)
	assert.True(t, strings.HasSuffix(name, ".mp4"))
}

func TestFilename_StripsPathAndUnicode(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	name := Filename("../Zoë /étoile", "4k", ts)

	assert.Equal(t, "ai_ad_..Zotoile_4k_20250102_030405.mp4", name)
	assert.NotContains(t, name, "/")
}

func TestWaitForCompletion_PollsUntilComplete(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	g := newTestGenerator(client, clock)

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StatePending}, nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateProcessing}, nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateComplete, URL: "https://x/video.mp4"}, nil).Once()

	url, err := g.WaitForCompletion(ctx, "op123")
	require.NoError(t, err)
	assert.Equal(t, "https://x/video.mp4", url)
	assert.Equal(t, []time.Duration{DefaultPollInterval, DefaultPollInterval}, clock.sleeps)
	client.AssertNumberOfCalls(t, "Poll", 3)
}

func TestWaitForCompletion_QueuedIsInProgress(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	g := newTestGenerator(client, clock)

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateQueued}, nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateComplete, URL: "https://x/v.mp4"}, nil).Once()

	url, err := g.WaitForCompletion(ctx, "op123")
	require.NoError(t, err)
	assert.Equal(t, "https://x/v.mp4", url)
	assert.Len(t, clock.sleeps, 1)
}

func TestWaitForCompletion_Timeout(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	g := newTestGenerator(client, clock, WithTimeout(time.Second), WithPollInterval(10*time.Second))

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StatePending}, nil)

	_, err := g.WaitForCompletion(ctx, "op123")
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrTimeout)
	assert.Contains(t, err.Error(), "op123")
	assert.Contains(t, err.Error(), "budget 1s")

	// Budget is checked before polling: one poll, one sleep, no second poll.
	client.AssertNumberOfCalls(t, "Poll", 1)
	assert.Len(t, clock.sleeps, 1)
}

func TestWaitForCompletion_TimeoutRealClock(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := New(client, nil, WithTimeout(time.Millisecond), WithPollInterval(10*time.Millisecond))

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateProcessing}, nil)

	start := time.Now()
	_, err := g.WaitForCompletion(ctx, "op123")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrTimeout)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestWaitForCompletion_CompleteWithoutURL(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	g := newTestGenerator(client, clock)

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateComplete}, nil).Once()

	_, err := g.WaitForCompletion(ctx, "op123")
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrProtocol)
	assert.Contains(t, err.Error(), "no result URL")
	client.AssertNumberOfCalls(t, "Poll", 1)
	assert.Empty(t, clock.sleeps)
}

func TestWaitForCompletion_UnrecognizedState(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	g := newTestGenerator(client, clock)

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: "WEIRD_STATE"}, nil).Once()

	_, err := g.WaitForCompletion(ctx, "op123")
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrProtocol)
	assert.Contains(t, err.Error(), "WEIRD_STATE")
	client.AssertNumberOfCalls(t, "Poll", 1)
}

func TestWaitForCompletion_Failed(t *testing.T) {
	tests := []struct {
		name       string
		detail     string
		wantDetail string
	}{
		{name: "with detail", detail: "bad media", wantDetail: "bad media"},
		{name: "without detail", detail: "", wantDetail: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := &mockClient{}
			g := newTestGenerator(client, newFakeClock())

			client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateFailed, Error: tt.detail}, nil).Once()

			_, err := g.WaitForCompletion(ctx, "op123")
			require.Error(t, err)
			assert.ErrorIs(t, err, captions.ErrJobFailed)

			var apiErr *captions.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, "op123", apiErr.OperationID)
		})
	}
}

func TestWaitForCompletion_PollErrorPropagates(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := newTestGenerator(client, newFakeClock())

	rateLimited := &captions.Error{Kind: captions.KindRateLimited, Op: "poll", OperationID: "op123", StatusCode: 429}
	client.On("Poll", ctx, "op123").Return(captions.PollResult{}, rateLimited).Once()

	_, err := g.WaitForCompletion(ctx, "op123")
	assert.ErrorIs(t, err, captions.ErrRateLimited)
	client.AssertNumberOfCalls(t, "Poll", 1)
}

func TestWaitForCompletion_CancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &mockClient{}
	g := New(client, nil, WithPollInterval(time.Hour))

	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StatePending}, nil).Run(func(mock.Arguments) {
		cancel()
	}).Once()

	_, err := g.WaitForCompletion(ctx, "op123")
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrCanceled)
	assert.NotErrorIs(t, err, captions.ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateAdVideo_Success(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	clock := newFakeClock()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	g := New(client, logger, WithClock(clock.Now), WithSleeper(clock.Sleep))

	outDir := filepath.Join(t.TempDir(), "videos")
	wantPath := filepath.Join(outDir, "ai_ad_Kate_4k_20250314_092653.mp4")

	client.On("Submit", ctx, captions.SubmitRequest{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		MediaURLs:   []string{"https://x/a.png"},
		Resolution:  captions.Resolution4K,
		WebhookID:   "hook",
	}).Return("op123", nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StatePending}, nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateComplete, URL: "https://x/video.mp4"}, nil).Once()
	client.On("Download", ctx, "https://x/video.mp4", wantPath).Return(wantPath, nil).Once()

	path, err := g.GenerateAdVideo(ctx, Request{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		MediaURLs:   []string{"https://x/a.png"},
		Resolution:  "4K",
		WebhookID:   "hook",
		OutputDir:   outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, wantPath, path)
	client.AssertExpectations(t)

	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Contains(t, logs.String(), "operation_id=op123")
	assert.Contains(t, logs.String(), "run_id=")
	assert.Contains(t, logs.String(), "video generation completed")
}

func TestGenerateAdVideo_CustomFilename(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := newTestGenerator(client, newFakeClock())

	outDir := t.TempDir()
	wantPath := filepath.Join(outDir, "launch.mp4")

	client.On("Submit", ctx, mock.Anything).Return("op1", nil).Once()
	client.On("Poll", ctx, "op1").Return(captions.PollResult{State: captions.StateComplete, URL: "https://x/v.mp4"}, nil).Once()
	client.On("Download", ctx, "https://x/v.mp4", wantPath).Return(wantPath, nil).Once()

	path, err := g.GenerateAdVideo(ctx, Request{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		Resolution:  "hd",
		OutputDir:   outDir,
		Filename:    "../launch.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, wantPath, path)
}

func TestGenerateAdVideo_InvalidFilename(t *testing.T) {
	client := &mockClient{}
	g := newTestGenerator(client, newFakeClock())

	_, err := g.GenerateAdVideo(context.Background(), Request{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		Resolution:  "hd",
		OutputDir:   t.TempDir(),
		Filename:    "/../",
	})
	assert.ErrorIs(t, err, captions.ErrValidation)
	client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestGenerateAdVideo_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "short script", req: Request{Script: "too short", CreatorName: "Kate", Resolution: "fhd"}},
		{name: "blank creator", req: Request{Script: "Buy our shoes today!", CreatorName: " ", Resolution: "fhd"}},
		{name: "bad resolution", req: Request{Script: "Buy our shoes today!", CreatorName: "Kate", Resolution: "720p"}},
		{name: "bad media url", req: Request{Script: "Buy our shoes today!", CreatorName: "Kate", Resolution: "fhd", MediaURLs: []string{"not-a-url"}}},
		{name: "non http media url", req: Request{Script: "Buy our shoes today!", CreatorName: "Kate", Resolution: "fhd", MediaURLs: []string{"ftp://x/a.png"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			g := newTestGenerator(client, newFakeClock())
			outDir := filepath.Join(t.TempDir(), "out")
			tt.req.OutputDir = outDir

			_, err := g.GenerateAdVideo(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, captions.ErrValidation)
			client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)

			_, statErr := os.Stat(outDir)
			assert.True(t, errors.Is(statErr, os.ErrNotExist), "output dir must not be created on validation failure")
		})
	}
}

func TestGenerateAdVideo_SubmitErrorPropagates(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := newTestGenerator(client, newFakeClock())

	billing := &captions.Error{Kind: captions.KindBilling, Op: "submit", StatusCode: 402}
	client.On("Submit", ctx, mock.Anything).Return("", billing).Once()

	_, err := g.GenerateAdVideo(ctx, Request{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		Resolution:  "fhd",
		OutputDir:   t.TempDir(),
	})
	assert.ErrorIs(t, err, captions.ErrBilling)
	client.AssertNotCalled(t, "Poll", mock.Anything, mock.Anything)
}

func TestGenerateAdVideo_JobFailedWritesNothing(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := newTestGenerator(client, newFakeClock())
	outDir := t.TempDir()

	client.On("Submit", ctx, mock.Anything).Return("op123", nil).Once()
	client.On("Poll", ctx, "op123").Return(captions.PollResult{State: captions.StateFailed, Error: "bad media"}, nil).Once()

	_, err := g.GenerateAdVideo(ctx, Request{
		Script:      "Buy our shoes today!",
		CreatorName: "Kate",
		Resolution:  "fhd",
		OutputDir:   outDir,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, captions.ErrJobFailed)
	assert.Contains(t, err.Error(), "bad media")
	client.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListCreatorsAndStatus_PassThrough(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	g := New(client, nil)

	creators := captions.Creators{Supported: []string{"Kate"}}
	client.On("ListCreators", ctx).Return(creators, nil).Once()
	client.On("Poll", ctx, "op9").Return(captions.PollResult{State: captions.StateQueued}, nil).Once()

	gotCreators, err := g.ListCreators(ctx)
	require.NoError(t, err)
	assert.Equal(t, creators, gotCreators)

	status, err := g.GetGenerationStatus(ctx, "op9")
	require.NoError(t, err)
	assert.Equal(t, captions.StateQueued, status.State)

	client.AssertExpectations(t)
}

func TestCheckCredits_NoOp(t *testing.T) {
	client := &mockClient{}
	g := New(client, nil)

	assert.NoError(t, g.CheckCredits(context.Background()))
	assert.Empty(t, client.Calls)
}
