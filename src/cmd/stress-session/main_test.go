package main

import (
	"context"
	"testing"
	"time"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.workers != 4 {
		t.Fatalf("Expected default workers=4, got %d", opts.workers)
	}
	if opts.deadline != 10*time.Second {
		t.Fatalf("Expected default deadline=10s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--workers", "2", "--max-delay", "5ms", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.workers != 2 {
		t.Fatalf("unexpected options %+v", *opts)
	}
	if opts.maxDelay != 5*time.Millisecond {
		t.Fatalf("Expected max-delay=5ms, got %v", opts.maxDelay)
	}
	if opts.deadline != 7*time.Second {
		t.Fatalf("Expected deadline=7s, got %v", opts.deadline)
	}
}

func TestLatestImageWins(t *testing.T) {
	r, err := runWithOptions(context.Background(), stressOptions{
		n:        30,
		workers:  4,
		maxDelay: 10 * time.Millisecond,
		deadline: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("runWithOptions: %v", err)
	}
	if !r.ok() {
		t.Fatalf("final = %q, want %q", r.final, r.want)
	}
	if r.recognized < 1 {
		t.Errorf("recognized = %d", r.recognized)
	}
}

func TestRejectsNonPositiveCount(t *testing.T) {
	if _, err := runWithOptions(context.Background(), stressOptions{n: 0, deadline: time.Second}); err == nil {
		t.Fatal("expected error for n=0")
	}
}
