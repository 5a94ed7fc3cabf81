package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekdays lists the accepted day-of-week codes in ISO order.
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Channel is a content source aggregating playlists.
type Channel struct {
	ID          string
	Sequence    int
	Slug        string
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the channel's data and returns an error if invalid.
func (c *Channel) Validate() error {
	if strings.TrimSpace(c.Slug) == "" {
		return fmt.Errorf("channel slug is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("channel title is required")
	}
	return nil
}

// Playlist is one externally-sourced playlist owned by a channel.
type Playlist struct {
	ID           string
	Sequence     int
	ChannelID    string
	YouTubeID    string
	Title        string
	IsActive     bool
	CastopodSlug string
	CastopodUUID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the playlist's data and returns an error if invalid.
func (p *Playlist) Validate() error {
	if p.ChannelID == "" {
		return fmt.Errorf("playlist channel id is required")
	}
	if len(strings.TrimSpace(p.YouTubeID)) < 3 {
		return fmt.Errorf("playlist youtube id is required")
	}
	return nil
}

// HasCastopodLink reports whether the playlist is linked to a podcast on the
// host, which enables uploads for jobs created against it.
func (p *Playlist) HasCastopodLink() bool {
	return p.CastopodSlug != "" || p.CastopodUUID != ""
}

// DisplayName returns the playlist title, falling back to the external id.
func (p *Playlist) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.YouTubeID
}

// Schedule is a recurrence rule attached to a playlist.
type Schedule struct {
	ID         string
	Sequence   int
	PlaylistID string
	DaysOfWeek []string
	RunTime    string
	Timezone   string
	IsActive   bool
	LastRunAt  *time.Time
	NextRunAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate normalizes and checks the schedule's recurrence rule.
//
// After a successful call, DaysOfWeek holds unique lowercase 3-letter codes
// and RunTime is zero-padded HH:MM.
func (s *Schedule) Validate() error {
	days, err := NormalizeDays(s.DaysOfWeek)
	if err != nil {
		return err
	}
	s.DaysOfWeek = days

	runTime, err := NormalizeRunTime(s.RunTime)
	if err != nil {
		return err
	}
	s.RunTime = runTime

	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if s.PlaylistID == "" {
		return fmt.Errorf("schedule playlist id is required")
	}
	return nil
}

// HasDay reports whether the given lowercase 3-letter code is in the day set.
func (s *Schedule) HasDay(code string) bool {
	for _, day := range s.DaysOfWeek {
		if day == code {
			return true
		}
	}
	return false
}

// Location resolves the schedule's IANA timezone, falling back to UTC when the
// name is empty or unknown.
func (s *Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RunTimeParts parses the schedule's HH:MM run time.
func (s *Schedule) RunTimeParts() (hour, minute int, err error) {
	return ParseRunTime(s.RunTime)
}

// NormalizeDays validates weekday tokens and returns them as unique lowercase
// 3-letter codes in ISO order. An empty set is rejected.
func NormalizeDays(days []string) ([]string, error) {
	seen := make(map[string]bool, len(days))
	for _, day := range days {
		code := strings.ToLower(strings.TrimSpace(day))
		if len(code) > 3 {
			code = code[:3]
		}
		valid := false
		for _, known := range Weekdays {
			if code == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("invalid day of week: %q", day)
		}
		seen[code] = true
	}

	var normalized []string
	for _, known := range Weekdays {
		if seen[known] {
			normalized = append(normalized, known)
		}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("days of week must not be empty")
	}
	return normalized, nil
}

// ParseRunTime parses a 24h HH:MM string, tolerating missing zero padding.
func ParseRunTime(value string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid run time: %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid run time hour: %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid run time minute: %q", value)
	}
	return hour, minute, nil
}

// NormalizeRunTime round-trips a run time to zero-padded HH:MM.
func NormalizeRunTime(value string) (string, error) {
	hour, minute, err := ParseRunTime(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// WeekdayCode returns the lowercase 3-letter code for a [time.Weekday].
func WeekdayCode(day time.Weekday) string {
	return strings.ToLower(day.String()[:3])
}

// Run is one execution record of playlist processing.
type Run struct {
	ID                string
	Sequence          int
	PlaylistID        string
	Status            RunStatus
	StartedAt         time.Time
	FinishedAt        *time.Time
	Message           string
	ProgressTotal     int
	ProgressCompleted int
	CurrentTask       string
	ProgressMessage   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the run's data and returns an error if invalid.
func (r *Run) Validate() error {
	if r.PlaylistID == "" {
		return fmt.Errorf("run playlist id is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid run status: %q", r.Status)
	}
	if r.ProgressTotal < 0 || r.ProgressCompleted < 0 {
		return fmt.Errorf("run progress counters must not be negative")
	}
	if r.ProgressTotal > 0 && r.ProgressCompleted > r.ProgressTotal {
		return fmt.Errorf("run progress completed exceeds total")
	}
	return nil
}

// Job is one queued or ad-hoc unit of playlist-processing work.
type Job struct {
	ID                string
	Sequence          int
	PlaylistID        string
	Action            string
	Status            JobStatus
	CastopodSlug      string
	CastopodUUID      string
	Note              string
	ShouldUpload      bool
	ProgressTotal     int
	ProgressCompleted int
	CurrentTask       string
	ProgressMessage   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the job's data and returns an error if invalid.
func (j *Job) Validate() error {
	if j.PlaylistID == "" {
		return fmt.Errorf("job playlist id is required")
	}
	if j.Action == "" {
		j.Action = "sync"
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("invalid job status: %q", j.Status)
	}
	if j.ProgressTotal < 0 || j.ProgressCompleted < 0 {
		return fmt.Errorf("job progress counters must not be negative")
	}
	if j.ProgressTotal > 0 && j.ProgressCompleted > j.ProgressTotal {
		return fmt.Errorf("job progress completed exceeds total")
	}
	return nil
}
