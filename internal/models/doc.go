// Package models defines the data model for the podcast automation service.
//
// # Entities
//
//   - [Channel] : a content source aggregating playlists
//   - [Playlist] : an externally-sourced playlist tracked for syncing
//   - [Schedule] : a weekday/time recurrence rule driving automatic job creation
//   - [Run] : one execution record of playlist processing
//   - [Job] : one queued or ad-hoc unit of work with cooperative cancellation
//
// Channel, Playlist, and Schedule are created through CRUD surfaces and read
// by the processing core. Run and Job records are created and mutated
// exclusively by the core: a Job moves queued → in_progress →
// {finished|failed|cancelled}, where an external cancellation request is
// recorded as the intermediate cancelling status and observed cooperatively
// by the running worker.
//
// # Status enums
//
// [JobStatus] and [RunStatus] are typed string enums with validity, terminal,
// and transition checks, preventing string-based state bugs in the scheduler
// and orchestrator.
package models
