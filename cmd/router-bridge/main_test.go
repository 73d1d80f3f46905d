package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestReload(t *testing.T) {
	requests := make(chan chan error)
	go func() {
		result := <-requests
		result <- errors.New("broken yaml")
	}()

	err := requestReload(context.Background(), requests)
	assert.EqualError(t, err, "broken yaml")
}

func TestRequestReload_AfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		// nobody serves the channel anymore
		done <- requestReload(ctx, make(chan chan error))
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errShuttingDown)
	case <-time.After(5 * time.Second):
		t.Fatal("reload request blocked after shutdown")
	}
}
