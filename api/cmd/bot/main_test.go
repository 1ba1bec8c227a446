package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		err  error
		want time.Duration
	}{
		{nil, 0},
		{errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{errors.New("too many requests"), 3 * time.Second},
		{errors.Wrap(timeoutErr{}, "getUpdates"), 2 * time.Second},
		{errors.New("bad gateway"), time.Second},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, retryDelayFromError(tt.err))
	}
}

func TestShortHash(t *testing.T) {
	a := shortHash("123:abc")
	require.Len(t, a, 16)
	require.Equal(t, a, shortHash("123:abc"))
	require.NotEqual(t, a, shortHash("123:abd"))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleep(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second)
}
