package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-agent/internal/agent"
	"github.com/i474232898/weather-agent/internal/weather"
)

// DefaultInterval applies when the configured interval is not positive.
const DefaultInterval = 15 * time.Minute

// jobTimeout bounds one location's refresh.
const jobTimeout = 30 * time.Second

// Fetcher is the part of the agent the scheduler drives.
type Fetcher interface {
	CurrentWeather(ctx context.Context, p agent.CurrentParams) (weather.WeatherSnapshot, error)
}

// Scheduler periodically refreshes a watch list of locations through the agent,
// so each refresh is observable on the agent's bus, and keeps the results in a store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	store     weather.Store
	locations []string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(locations []string, interval time.Duration, fetcher Fetcher, store weather.Store) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		store:     store,
		locations: locations,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Println("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		log.Println("scheduler: running weather refresh job")
		s.RunOnce(context.Background())
		log.Println("scheduler: completed weather refresh job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every watched location concurrently and reports how many succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, loc := range s.locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			snap, err := s.fetcher.CurrentWeather(ctx, agent.CurrentParams{Location: loc})
			if err != nil {
				// Keep the last good snapshot.
				log.Printf("scheduler: refresh failed for %s: %v", loc, err)
				return
			}
			s.store.SaveSnapshot(loc, snap)

			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
