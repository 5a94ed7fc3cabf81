package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// seedPlaylist creates a channel and one playlist under it
func seedPlaylist(t *testing.T, db *sql.DB, youtubeID string) *models.Playlist {
	t.Helper()

	channels := NewChannelRepository(db)
	channel := &models.Channel{Slug: "chan-" + youtubeID, Title: "Channel " + youtubeID}
	if err := channels.Create(channel); err != nil {
		t.Fatalf("failed to create channel: %v", err)
	}

	playlists := NewPlaylistRepository(db)
	playlist := &models.Playlist{ChannelID: channel.ID, YouTubeID: youtubeID, IsActive: true}
	if err := playlists.Create(playlist); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	return playlist
}

func TestChannelRepository(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewChannelRepository(db)

		channel := &models.Channel{Slug: "weekly-news", Title: "Weekly News", Description: "desc"}
		if err := repo.Create(channel); err != nil {
			t.Fatalf("failed to create channel: %v", err)
		}
		if channel.ID == "" {
			t.Error("channel ID should be set after creation")
		}

		got, err := repo.GetBySlug("weekly-news")
		if err != nil {
			t.Fatalf("failed to get channel: %v", err)
		}
		if got.Title != "Weekly News" || got.Description != "desc" {
			t.Errorf("unexpected channel: %+v", got)
		}
	})

	t.Run("GetMissingReturnsNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewChannelRepository(db)

		_, err := repo.Get("nope")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLcascade")

		jobs := NewJobRepository(db)
		if err := jobs.Create(&models.Job{PlaylistID: playlist.ID}); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		channels := NewChannelRepository(db)
		if err := channels.Delete(playlist.ChannelID); err != nil {
			t.Fatalf("failed to delete channel: %v", err)
		}

		if _, err := NewPlaylistRepository(db).Get(playlist.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected playlist gone, got %v", err)
		}
		remaining, err := jobs.List()
		if err != nil {
			t.Fatalf("failed to list jobs: %v", err)
		}
		if len(remaining) != 0 {
			t.Errorf("expected jobs cascade-deleted, got %d", len(remaining))
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("GetByYouTubeID", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLxyz")

		got, err := NewPlaylistRepository(db).GetByYouTubeID("PLxyz")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.ID != playlist.ID {
			t.Errorf("expected ID %s, got %s", playlist.ID, got.ID)
		}
	})

	t.Run("ListActiveExcludesInactive", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)
		active := seedPlaylist(t, db, "PLactive")
		inactive := seedPlaylist(t, db, "PLinactive")

		inactive.IsActive = false
		if err := repo.Update(inactive); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		got, err := repo.ListActive()
		if err != nil {
			t.Fatalf("failed to list active playlists: %v", err)
		}
		if len(got) != 1 || got[0].ID != active.ID {
			t.Errorf("expected only the active playlist, got %d", len(got))
		}
	})
}

func TestScheduleRepository(t *testing.T) {
	t.Run("RoundTripsDaySet", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLsched")
		repo := NewScheduleRepository(db)

		schedule := &models.Schedule{
			PlaylistID: playlist.ID,
			DaysOfWeek: []string{"FRI", "mon"},
			RunTime:    "7:00",
			Timezone:   "Asia/Seoul",
			IsActive:   true,
		}
		if err := repo.Create(schedule); err != nil {
			t.Fatalf("failed to create schedule: %v", err)
		}

		got, err := repo.Get(schedule.ID)
		if err != nil {
			t.Fatalf("failed to get schedule: %v", err)
		}
		if len(got.DaysOfWeek) != 2 || got.DaysOfWeek[0] != "mon" || got.DaysOfWeek[1] != "fri" {
			t.Errorf("unexpected day set: %v", got.DaysOfWeek)
		}
		if got.RunTime != "07:00" {
			t.Errorf("expected normalized run time 07:00, got %s", got.RunTime)
		}
	})

	t.Run("ListActiveJoinsPlaylist", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLjoin")
		repo := NewScheduleRepository(db)

		schedule := &models.Schedule{
			PlaylistID: playlist.ID,
			DaysOfWeek: []string{"mon"},
			RunTime:    "07:00",
			IsActive:   true,
		}
		if err := repo.Create(schedule); err != nil {
			t.Fatalf("failed to create schedule: %v", err)
		}
		inactive := &models.Schedule{
			PlaylistID: playlist.ID,
			DaysOfWeek: []string{"tue"},
			RunTime:    "08:00",
			IsActive:   false,
		}
		if err := repo.Create(inactive); err != nil {
			t.Fatalf("failed to create inactive schedule: %v", err)
		}

		pairs, err := repo.ListActive()
		if err != nil {
			t.Fatalf("failed to list active schedules: %v", err)
		}
		if len(pairs) != 1 {
			t.Fatalf("expected 1 active schedule, got %d", len(pairs))
		}
		if pairs[0].Playlist.YouTubeID != "PLjoin" {
			t.Errorf("expected joined playlist PLjoin, got %s", pairs[0].Playlist.YouTubeID)
		}
	})

	t.Run("MarkTriggered", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLtrig")
		repo := NewScheduleRepository(db)

		schedule := &models.Schedule{
			PlaylistID: playlist.ID,
			DaysOfWeek: []string{"mon"},
			RunTime:    "07:00",
			IsActive:   true,
		}
		if err := repo.Create(schedule); err != nil {
			t.Fatalf("failed to create schedule: %v", err)
		}

		now := time.Now().UTC().Truncate(time.Second)
		next := now.AddDate(0, 0, 7)
		if err := repo.MarkTriggered(schedule.ID, now, &next); err != nil {
			t.Fatalf("failed to mark triggered: %v", err)
		}

		got, err := repo.Get(schedule.ID)
		if err != nil {
			t.Fatalf("failed to get schedule: %v", err)
		}
		if got.LastRunAt == nil || !got.LastRunAt.Equal(now) {
			t.Errorf("expected last_run_at %v, got %v", now, got.LastRunAt)
		}
		if got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
			t.Errorf("expected next_run_at %v, got %v", next, got.NextRunAt)
		}
	})
}

func TestRunRepository(t *testing.T) {
	t.Run("CreateDefaultsToPending", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLrun")
		repo := NewRunRepository(db)

		run := &models.Run{PlaylistID: playlist.ID}
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != models.RunPending {
			t.Errorf("expected pending status, got %s", got.Status)
		}
	})

	t.Run("UpdateProgressAndFinish", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLrun2")
		repo := NewRunRepository(db)

		run := &models.Run{PlaylistID: playlist.ID, Status: models.RunInProgress}
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		finished := time.Now().UTC().Truncate(time.Second)
		run.Status = models.RunFinished
		run.ProgressTotal = 3
		run.ProgressCompleted = 3
		run.Message = "done"
		run.FinishedAt = &finished
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != models.RunFinished || got.ProgressCompleted != 3 || got.FinishedAt == nil {
			t.Errorf("unexpected run after update: %+v", got)
		}
	})
}

func TestJobRepository(t *testing.T) {
	t.Run("OldestQueuedOrder", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLqueue")
		repo := NewJobRepository(db)

		first := &models.Job{PlaylistID: playlist.ID, Note: "first"}
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		second := &models.Job{PlaylistID: playlist.ID, Note: "second"}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		got, err := repo.OldestQueued()
		if err != nil {
			t.Fatalf("failed to get oldest queued job: %v", err)
		}
		if got == nil || got.ID != first.ID {
			t.Errorf("expected oldest job %s, got %+v", first.ID, got)
		}
	})

	t.Run("OldestQueuedEmpty", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewJobRepository(db)

		got, err := repo.OldestQueued()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for empty queue, got %+v", got)
		}
	})

	t.Run("FindPendingForPlaylist", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLpending")
		other := seedPlaylist(t, db, "PLother")
		repo := NewJobRepository(db)

		job := &models.Job{PlaylistID: playlist.ID}
		if err := repo.Create(job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		got, err := repo.FindPendingForPlaylist(playlist.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || got.ID != job.ID {
			t.Errorf("expected pending job, got %+v", got)
		}

		none, err := repo.FindPendingForPlaylist(other.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if none != nil {
			t.Errorf("expected nil for playlist without jobs, got %+v", none)
		}

		status := models.JobFinished
		if err := repo.Patch(job.ID, JobPatch{Status: &status}); err != nil {
			t.Fatalf("failed to patch job: %v", err)
		}
		finished, err := repo.FindPendingForPlaylist(playlist.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if finished != nil {
			t.Error("terminal job should not count as pending")
		}
	})

	t.Run("PatchPartialFields", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLpatch")
		repo := NewJobRepository(db)

		job := &models.Job{PlaylistID: playlist.ID, Note: "keep me"}
		if err := repo.Create(job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		total, completed := 5, 2
		task := "uploading"
		if err := repo.Patch(job.ID, JobPatch{ProgressTotal: &total, ProgressCompleted: &completed, CurrentTask: &task}); err != nil {
			t.Fatalf("failed to patch job: %v", err)
		}

		got, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if got.ProgressTotal != 5 || got.ProgressCompleted != 2 || got.CurrentTask != "uploading" {
			t.Errorf("unexpected job after patch: %+v", got)
		}
		if got.Note != "keep me" {
			t.Errorf("expected untouched note, got %q", got.Note)
		}
	})

	t.Run("RequestCancel", func(t *testing.T) {
		db := setupTestDB(t)
		playlist := seedPlaylist(t, db, "PLcancel")
		repo := NewJobRepository(db)

		queued := &models.Job{PlaylistID: playlist.ID}
		if err := repo.Create(queued); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if err := repo.RequestCancel(queued.ID); err != nil {
			t.Fatalf("failed to cancel queued job: %v", err)
		}
		got, _ := repo.Get(queued.ID)
		if got.Status != models.JobCancelled {
			t.Errorf("queued job should cancel immediately, got %s", got.Status)
		}

		running := &models.Job{PlaylistID: playlist.ID, Status: models.JobInProgress}
		if err := repo.Create(running); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if err := repo.RequestCancel(running.ID); err != nil {
			t.Fatalf("failed to cancel running job: %v", err)
		}
		got, _ = repo.Get(running.ID)
		if got.Status != models.JobCancelling {
			t.Errorf("running job should become cancelling, got %s", got.Status)
		}

		if err := repo.RequestCancel(queued.ID); err == nil {
			t.Error("expected error cancelling a terminal job")
		}
	})
}

func TestQuickAdd(t *testing.T) {
	t.Run("CreatesChannelAndPlaylist", func(t *testing.T) {
		db := setupTestDB(t)
		channels := NewChannelRepository(db)
		playlists := NewPlaylistRepository(db)

		result, err := QuickAdd(channels, playlists, QuickAddInput{
			Name:          "Morning Show",
			PlaylistInput: "https://www.youtube.com/watch?v=abc&list=PLmorning",
			CastopodSlug:  "morning",
		})
		if err != nil {
			t.Fatalf("quick add failed: %v", err)
		}
		if !result.ChannelCreated || !result.PlaylistCreated {
			t.Error("expected channel and playlist to be created")
		}
		if result.Channel.Slug != "morning-show" {
			t.Errorf("unexpected channel slug: %s", result.Channel.Slug)
		}
		if result.Playlist.YouTubeID != "PLmorning" {
			t.Errorf("unexpected playlist id: %s", result.Playlist.YouTubeID)
		}
	})

	t.Run("ReusesExistingAndAdoptsLinkage", func(t *testing.T) {
		db := setupTestDB(t)
		channels := NewChannelRepository(db)
		playlists := NewPlaylistRepository(db)

		if _, err := QuickAdd(channels, playlists, QuickAddInput{Name: "Morning Show", PlaylistInput: "PLmorning"}); err != nil {
			t.Fatalf("first quick add failed: %v", err)
		}

		result, err := QuickAdd(channels, playlists, QuickAddInput{
			Name:          "Morning Show",
			PlaylistInput: "PLmorning",
			CastopodUUID:  "uuid-123",
		})
		if err != nil {
			t.Fatalf("second quick add failed: %v", err)
		}
		if result.ChannelCreated || result.PlaylistCreated {
			t.Error("expected existing channel and playlist to be reused")
		}
		if result.Playlist.CastopodUUID != "uuid-123" {
			t.Errorf("expected adopted linkage, got %q", result.Playlist.CastopodUUID)
		}
	})
}
