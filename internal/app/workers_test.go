package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestStartWorkers_WithoutKafka(t *testing.T) {
	logger := log.WithField("test", "workers")
	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatalf("init deps: %v", err)
	}

	cfg := DefaultConfig()
	group := startWorkers(context.Background(), cfg, deps, nil, logger)

	want := []string{"expiration", "retention"}
	if len(group.names) != len(want) {
		t.Fatalf("expected workers %v, got %v", want, group.names)
	}
	for i, name := range want {
		if group.names[i] != name {
			t.Errorf("worker %d: expected %s, got %s", i, name, group.names[i])
		}
	}

	stopped := make(chan struct{})
	go func() {
		group.stop(time.Second, logger)
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestWorkerGroup_StopTimeout(t *testing.T) {
	logger := log.WithField("test", "workers-timeout")
	group := &workerGroup{cancel: func() {}}

	var finished atomic.Bool
	release := make(chan struct{})
	group.spawn(context.Background(), "stuck", func(context.Context) {
		<-release
		finished.Store(true)
	})

	started := time.Now()
	group.stop(50*time.Millisecond, logger)
	if time.Since(started) > time.Second {
		t.Fatal("stop must return after timeout")
	}
	if finished.Load() {
		t.Fatal("stuck worker should still be running")
	}
	close(release)
}

func TestWorkerGroup_NilStop(_ *testing.T) {
	var group *workerGroup
	group.stop(time.Millisecond, log.WithField("test", "workers-nil"))
}
