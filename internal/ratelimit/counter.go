// Package ratelimit implements the daily Bloomberg usage cap.
//
// Bloomberg meters Terminal API usage per day, so the server keeps its own
// counter to refuse requests before the Terminal does. The count is persisted
// to a JSON state file so restarts do not reset the day's usage.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lhzou/blpapi-mcp/internal/fs"
)

const (
	// DefaultDailyLimit is the default number of data hits allowed per day.
	DefaultDailyLimit = 10000
	// DefaultTimezone defines the day boundary; Bloomberg accounting runs on
	// New York time.
	DefaultTimezone = "America/New_York"
	// DefaultRetentionDays is how many days of usage history are kept.
	DefaultRetentionDays = 30
)

// Counter tracks data hits against a daily limit. Days roll over at midnight
// in the configured timezone; past days are folded into a bounded history.
// All methods are safe for concurrent use.
type Counter struct {
	mu sync.Mutex

	statePath     string
	dailyLimit    int
	tz            *time.Location
	retentionDays int
	now           func() time.Time

	currentDate  string
	currentCount int
	history      map[string]int
}

// Options configures a Counter. Zero values fall back to the package
// defaults.
type Options struct {
	StatePath     string
	DailyLimit    int
	Timezone      string
	RetentionDays int
	// Now overrides the clock; used in tests.
	Now func() time.Time
}

// state is the JSON document persisted to the state file.
type state struct {
	Timezone     string         `json:"tz"`
	DailyLimit   int            `json:"daily_limit"`
	CurrentDate  string         `json:"current_date"`
	CurrentCount int            `json:"current_count"`
	History      map[string]int `json:"history"`
	UpdatedAtUTC string         `json:"updated_at_utc"`
}

// New creates a Counter, loading existing state from the state file if
// present. A corrupt state file is renamed aside and the counter starts
// fresh rather than failing.
func New(opts Options) (*Counter, error) {
	if opts.StatePath == "" {
		opts.StatePath = filepath.Join("var", "ratelimit_state.json")
	}
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}
	if opts.Timezone == "" {
		opts.Timezone = DefaultTimezone
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	tz, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
	}

	c := &Counter{
		statePath:     opts.StatePath,
		dailyLimit:    opts.DailyLimit,
		tz:            tz,
		retentionDays: opts.RetentionDays,
		now:           opts.Now,
		history:       make(map[string]int),
	}

	if err := c.loadOrInit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Limit returns the configured daily limit.
func (c *Counter) Limit() int {
	return c.dailyLimit
}

// today returns the current civil date in the counter's timezone.
func (c *Counter) today() string {
	return c.now().In(c.tz).Format(time.DateOnly)
}

func (c *Counter) loadOrInit() error {
	if fs.FileExists(c.statePath) {
		data, err := os.ReadFile(c.statePath)
		if err != nil {
			return fmt.Errorf("failed to read rate limit state: %w", err)
		}

		var st state
		if jsonErr := json.Unmarshal(data, &st); jsonErr != nil || st.CurrentDate == "" {
			// Keep the corrupt file around for inspection and start fresh.
			backup := c.statePath + ".corrupt." + c.now().Format("20060102150405")
			if err := os.Rename(c.statePath, backup); err != nil {
				return fmt.Errorf("failed to set aside corrupt state file: %w", err)
			}
		} else {
			c.currentDate = st.CurrentDate
			c.currentCount = st.CurrentCount
			if st.History != nil {
				c.history = st.History
			}
			c.rolloverIfNeeded()
			return nil
		}
	}

	c.currentDate = c.today()
	c.currentCount = 0
	c.history = make(map[string]int)
	return c.save()
}

// save writes the state atomically: temp file, fsync, rename.
func (c *Counter) save() error {
	st := state{
		Timezone:     c.tz.String(),
		DailyLimit:   c.dailyLimit,
		CurrentDate:  c.currentDate,
		CurrentCount: c.currentCount,
		History:      c.history,
		UpdatedAtUTC: c.now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := c.statePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp, c.statePath); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// rolloverIfNeeded folds the current count into history when the civil day
// has changed, then prunes history beyond the retention window. Callers must
// hold the lock (or be in init).
func (c *Counter) rolloverIfNeeded() {
	today := c.today()
	if today == c.currentDate {
		return
	}

	c.history[c.currentDate] = c.currentCount
	c.currentDate = today
	c.currentCount = 0

	if len(c.history) > c.retentionDays {
		dates := make([]string, 0, len(c.history))
		for d := range c.history {
			dates = append(dates, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))
		for _, d := range dates[c.retentionDays:] {
			delete(c.history, d)
		}
	}

	_ = c.save()
}

// TryConsume adds n hits if doing so stays within the daily limit. It returns
// whether the hits were added and the count after the call.
func (c *Counter) TryConsume(n int) (bool, int, error) {
	if n <= 0 {
		return false, 0, fmt.Errorf("hit count must be positive, got %d", n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	if c.currentCount+n > c.dailyLimit {
		return false, c.currentCount, nil
	}
	c.currentCount += n
	if err := c.save(); err != nil {
		return false, c.currentCount, err
	}
	return true, c.currentCount, nil
}

// CanConsume reports whether n more hits would stay within the daily limit.
func (c *Counter) CanConsume(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	return c.currentCount+n <= c.dailyLimit
}

// RecordUsage adds n hits unconditionally, e.g. after Bloomberg has already
// served the request. It may push the count over the daily limit.
func (c *Counter) RecordUsage(n int) error {
	if n < 0 {
		return fmt.Errorf("hit count must be non-negative, got %d", n)
	}
	if n == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	c.currentCount += n
	return c.save()
}

// Count returns today's hit count.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	return c.currentCount
}

// Remaining returns how many hits remain for today, never negative.
func (c *Counter) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	if r := c.dailyLimit - c.currentCount; r > 0 {
		return r
	}
	return 0
}

// Usage returns the recorded hit count for the given date (YYYY-MM-DD), or
// false if no usage is recorded for that date.
func (c *Counter) Usage(date string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	if date == c.currentDate {
		return c.currentCount, true
	}
	n, ok := c.history[date]
	return n, ok
}

// YesterdayUsage returns the hit count recorded for the day before the
// current one, or false if none is recorded.
func (c *Counter) YesterdayUsage() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	day, err := time.ParseInLocation(time.DateOnly, c.currentDate, c.tz)
	if err != nil {
		return 0, false
	}
	yesterday := day.AddDate(0, 0, -1).Format(time.DateOnly)
	n, ok := c.history[yesterday]
	return n, ok
}

// ForceSave persists the current state immediately.
func (c *Counter) ForceSave() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverIfNeeded()
	return c.save()
}
