package monitor

import (
	"context"
	"testing"
	"time"
)

func TestCountAliveCountsTrueStatuses(t *testing.T) {
	workers := []WorkerStatus{
		func() bool { return true },
		func() bool { return false },
		func() bool { return true },
	}
	if got := countAlive(workers); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestCountAliveEmptyWorkers(t *testing.T) {
	if got := countAlive(nil); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestLogThroughputDoesNotPanicOnZeroElapsed(t *testing.T) {
	logThroughput(context.Background(), 100, 90, 10, 9, 0)
}

func TestLogThroughputDoesNotPanicWithRealElapsed(t *testing.T) {
	logThroughput(context.Background(), 100, 90, 10, 9, 2*time.Second)
}
