package models

import (
	"testing"
	"time"
)

func TestNormalizeDays(t *testing.T) {
	t.Run("NormalizesCaseAndOrder", func(t *testing.T) {
		days, err := NormalizeDays([]string{"Friday", "MON", " wed "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"mon", "wed", "fri"}
		if len(days) != len(want) {
			t.Fatalf("expected %d days, got %d", len(want), len(days))
		}
		for i, day := range want {
			if days[i] != day {
				t.Errorf("expected days[%d]=%s, got %s", i, day, days[i])
			}
		}
	})

	t.Run("RejectsEmptySet", func(t *testing.T) {
		if _, err := NormalizeDays(nil); err == nil {
			t.Error("expected error for empty day set")
		}
	})

	t.Run("RejectsUnknownToken", func(t *testing.T) {
		if _, err := NormalizeDays([]string{"mon", "yesterday"}); err == nil {
			t.Error("expected error for unknown day token")
		}
	})

	t.Run("DeduplicatesTokens", func(t *testing.T) {
		days, err := NormalizeDays([]string{"mon", "monday", "Mon"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(days) != 1 || days[0] != "mon" {
			t.Errorf("expected [mon], got %v", days)
		}
	})
}

func TestNormalizeRunTime(t *testing.T) {
	t.Run("ZeroPads", func(t *testing.T) {
		got, err := NormalizeRunTime("7:5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "07:05" {
			t.Errorf("expected 07:05, got %s", got)
		}
	})

	t.Run("RoundTripsPadded", func(t *testing.T) {
		got, err := NormalizeRunTime("23:59")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "23:59" {
			t.Errorf("expected 23:59, got %s", got)
		}
	})

	t.Run("RejectsOutOfRange", func(t *testing.T) {
		for _, input := range []string{"24:00", "12:60", "noon", "12", ""} {
			if _, err := NormalizeRunTime(input); err == nil {
				t.Errorf("expected error for %q", input)
			}
		}
	})
}

func TestScheduleValidate(t *testing.T) {
	t.Run("NormalizesFields", func(t *testing.T) {
		schedule := &Schedule{
			PlaylistID: "pl-1",
			DaysOfWeek: []string{"Monday"},
			RunTime:    "7:00",
		}
		if err := schedule.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if schedule.RunTime != "07:00" {
			t.Errorf("expected run time 07:00, got %s", schedule.RunTime)
		}
		if schedule.Timezone != "UTC" {
			t.Errorf("expected timezone UTC, got %s", schedule.Timezone)
		}
		if len(schedule.DaysOfWeek) != 1 || schedule.DaysOfWeek[0] != "mon" {
			t.Errorf("expected [mon], got %v", schedule.DaysOfWeek)
		}
	})

	t.Run("InvalidTimezoneFallsBackToUTC", func(t *testing.T) {
		schedule := &Schedule{Timezone: "Mars/Olympus"}
		if schedule.Location() != time.UTC {
			t.Error("expected UTC fallback for unknown timezone")
		}
	})

	t.Run("ResolvesKnownTimezone", func(t *testing.T) {
		schedule := &Schedule{Timezone: "Asia/Seoul"}
		if schedule.Location().String() != "Asia/Seoul" {
			t.Errorf("expected Asia/Seoul, got %s", schedule.Location())
		}
	})
}

func TestWeekdayCode(t *testing.T) {
	cases := map[time.Weekday]string{
		time.Monday: "mon",
		time.Sunday: "sun",
		time.Thursday: "thu",
	}
	for day, want := range cases {
		if got := WeekdayCode(day); got != want {
			t.Errorf("WeekdayCode(%v) = %s, want %s", day, got, want)
		}
	}
}

func TestRunValidate(t *testing.T) {
	t.Run("RejectsCompletedBeyondTotal", func(t *testing.T) {
		run := &Run{PlaylistID: "pl-1", Status: RunInProgress, ProgressTotal: 2, ProgressCompleted: 3}
		if err := run.Validate(); err == nil {
			t.Error("expected error when completed exceeds total")
		}
	})

	t.Run("AllowsUnknownTotal", func(t *testing.T) {
		run := &Run{PlaylistID: "pl-1", Status: RunInProgress, ProgressTotal: 0, ProgressCompleted: 0}
		if err := run.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestJobValidate(t *testing.T) {
	job := &Job{PlaylistID: "pl-1", Status: JobQueued}
	if err := job.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Action != "sync" {
		t.Errorf("expected default action sync, got %s", job.Action)
	}
}
