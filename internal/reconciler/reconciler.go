// Package reconciler runs a background sweep that repairs group membership
// from face docs — the system's convergence rule ("the face doc is the
// source of truth for membership; group docs are secondary indexes")
// applied passively. Only groups that at least one face doc points at are
// recomputed: a group that no face doc claims any more (such as a secondary
// left behind when a merge stopped after repointing its faces but before
// deleting its doc) keeps its stale faceIds, and a face doc that points at
// a deleted group is skipped.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/faceops/groupcore/internal/groupengine"
	"github.com/faceops/groupcore/internal/groupstore"
)

// DefaultInterval is how often the sweep runs when none is configured.
const DefaultInterval = 15 * time.Minute

// Reconciler periodically recomputes group membership from face docs.
type Reconciler struct {
	store     groupstore.Store
	engine    *groupengine.Engine
	interval  time.Duration
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithInterval overrides the default sweep interval.
func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// New creates a Reconciler. engine supplies leader reassignment when a
// repaired group loses its leader.
func New(store groupstore.Store, engine *groupengine.Engine, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		engine:    engine,
		interval:  DefaultInterval,
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules the sweep on the configured interval and runs it
// asynchronously until Stop is called.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.scheduler.Every(r.interval).Do(func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.ErrorContext(ctx, "reconciler sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("reconciler: schedule sweep: %w", err)
	}
	r.scheduler.StartAsync()
	return nil
}

// Stop halts the scheduled sweep.
func (r *Reconciler) Stop() {
	r.scheduler.Stop()
}

// Sweep runs one reconciliation pass over every known user and returns the
// number of groups it repaired. Exported directly so tests and operators can
// trigger a pass without waiting on the scheduler.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	userIDs, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconciler: list user ids: %w", err)
	}

	repaired := 0
	for _, userID := range userIDs {
		n, err := r.sweepUser(ctx, userID)
		if err != nil {
			r.logger.WarnContext(ctx, "reconciler: sweep user failed",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			continue
		}
		repaired += n
	}
	return repaired, nil
}

// sweepUser recomputes each referenced group's membership from the face
// docs that currently claim it, and reassigns the leader if it fell out of
// the recomputed set.
func (r *Reconciler) sweepUser(ctx context.Context, userID string) (int, error) {
	faces, err := r.store.ListFaces(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list faces: %w", err)
	}

	membersByGroup := make(map[string][]string)
	for _, f := range faces {
		if f.GroupID == "" {
			continue
		}
		membersByGroup[f.GroupID] = append(membersByGroup[f.GroupID], f.FaceID)
	}

	repaired := 0
	for groupID, members := range membersByGroup {
		group, err := r.store.GetGroup(ctx, userID, groupID)
		if err != nil {
			r.logger.WarnContext(ctx, "reconciler: get group failed",
				slog.String("user_id", userID), slog.String("group_id", groupID), slog.String("error", err.Error()))
			continue
		}
		if group == nil {
			// A face doc claims a group that no longer exists; nothing to
			// repair here short of recreating the group, which is out of
			// scope for a passive reconciler.
			continue
		}

		if sameMembers(group.FaceIDs, members) {
			continue
		}

		group.FaceIDs = members
		group.FaceCount = len(members)
		if !group.HasFace(group.LeaderFaceID) {
			if err := r.engine.ReassignLeader(ctx, userID, group); err != nil {
				r.logger.WarnContext(ctx, "reconciler: reassign leader failed",
					slog.String("group_id", groupID), slog.String("error", err.Error()))
			}
		}
		group.UpdatedAt = time.Now()
		if err := r.store.PutGroup(ctx, group); err != nil {
			r.logger.WarnContext(ctx, "reconciler: put group failed",
				slog.String("group_id", groupID), slog.String("error", err.Error()))
			continue
		}
		repaired++
	}
	return repaired, nil
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
