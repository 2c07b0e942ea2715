package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/config"
	"xscraper/errs"
	"xscraper/scraper"
)

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := &config.Config{
		Daemon: config.DaemonConfig{
			Jobs: []config.Job{{Name: "broken", Schedule: "every now and then", Mode: "search"}},
		},
	}
	s := New(cfg, nil, nil)
	s.log = zerolog.Nop()

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
}

func TestStartAndStopWithValidJobs(t *testing.T) {
	var calls atomic.Int32
	factory := func() (*scraper.Orchestrator, error) {
		calls.Add(1)
		return nil, errors.New("should not fire within the test window")
	}
	cfg := &config.Config{
		Daemon: config.DaemonConfig{
			Jobs: []config.Job{
				{Name: "hourly-search", Schedule: "@hourly", Mode: "search", Query: "golang", Limit: 50},
				{Name: "daily-user", Schedule: "0 6 * * *", Mode: "user", Query: "golang", Limit: 100},
			},
		},
	}
	s := New(cfg, factory, nil)
	s.log = zerolog.Nop()

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Zero(t, calls.Load())
}

func TestFireSerializesPerJob(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	factory := func() (*scraper.Orchestrator, error) {
		calls.Add(1)
		<-release
		return nil, errors.New("no proxies today")
	}
	s := New(&config.Config{}, factory, nil)
	s.log = zerolog.Nop()

	job := config.Job{Name: "hourly", Mode: "search", Query: "golang", Limit: 10}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.fire(context.Background(), job)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 5*time.Millisecond, "first firing should reach the factory")

	// A tick landing mid-firing is dropped, not queued.
	s.fire(context.Background(), job)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	wg.Wait()

	// Once the first firing drains, the job may run again.
	s.fire(context.Background(), job)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFireHonorsCanceledContext(t *testing.T) {
	var calls atomic.Int32
	factory := func() (*scraper.Orchestrator, error) {
		calls.Add(1)
		return nil, errors.New("unreachable")
	}
	s := New(&config.Config{}, factory, nil)
	s.log = zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.fire(ctx, config.Job{Name: "late", Mode: "search"})
	assert.Zero(t, calls.Load())
}
