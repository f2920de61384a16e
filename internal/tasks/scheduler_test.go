package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler(t *testing.T) {
	t.Run("RunOnce", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.SetRecords(record(1, 1))
		f.catalog.Session = true
		f.catalog.User = &models.User{ID: 1}

		s := NewScheduler(f.sync, SchedulerOpts{Favorites: true})
		cycle, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cycle.Catalog.Succeeded() {
			t.Errorf("expected catalog success, got %v", cycle.Catalog.Err)
		}
		if cycle.Favorites == nil || cycle.Favorites.Err != nil {
			t.Errorf("expected favorites to run, got %+v", cycle.Favorites)
		}
		if s.Running() {
			t.Error("expected scheduler to be idle")
		}
	})

	t.Run("Favorites disabled", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Session = true

		cycle, _ := NewScheduler(f.sync, SchedulerOpts{}).RunOnce(context.Background())
		if cycle.Favorites != nil || f.catalog.FavoritesCalls != 0 {
			t.Error("expected favorites not to run")
		}
	})

	t.Run("Single flight", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Block = make(chan struct{})

		s := NewScheduler(f.sync, SchedulerOpts{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.RunOnce(context.Background())
		}()

		waitFor(t, s.Running)

		if _, err := s.RunOnce(context.Background()); !errors.Is(err, shared.ErrSyncInFlight) {
			t.Errorf("expected ErrSyncInFlight, got %v", err)
		}

		close(f.catalog.Block)
		<-done

		if s.Cycles() != 1 {
			t.Errorf("expected 1 cycle, got %d", s.Cycles())
		}
		if _, err := s.RunOnce(context.Background()); err != nil {
			t.Errorf("expected cycle to run after the first finished, got %v", err)
		}
	})

	t.Run("Run ticks until canceled", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.SetRecords(record(1, 1))

		s := NewScheduler(f.sync, SchedulerOpts{Interval: 10 * time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error)
		go func() { done <- s.Run(ctx) }()

		waitFor(t, func() bool { return s.Cycles() >= 3 })
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected nil error on cancellation, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
		if s.Running() {
			t.Error("expected no cycle in flight after Run returned")
		}
	})

	t.Run("Ticks during a running cycle are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Block = make(chan struct{})

		s := NewScheduler(f.sync, SchedulerOpts{Interval: 5 * time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error)
		go func() { done <- s.Run(ctx) }()

		waitFor(t, s.Running)
		time.Sleep(50 * time.Millisecond)

		if s.Cycles() != 1 {
			t.Errorf("expected ticks to be skipped while running, got %d cycles", s.Cycles())
		}

		close(f.catalog.Block)
		cancel()
		<-done
	})

	t.Run("Default interval", func(t *testing.T) {
		if s := NewScheduler(newFixture(t).sync, SchedulerOpts{}); s.interval != DefaultInterval {
			t.Errorf("expected %v, got %v", DefaultInterval, s.interval)
		}
	})
}
