package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/brightlearn/campus/internal/auth/device"
	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/repository"
	"github.com/brightlearn/campus/internal/auth/session"
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Scheduler, domain.SessionManager, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	sessions := session.NewManager(
		repository.NewSessionRepository(conn),
		device.NoopLocator{},
		config.NewStaticSecurityPolicyHolder(config.DefaultSecurityPolicy()),
		clk, node, zap.NewNop(),
	)

	sched, err := New(Params{
		Log:      zap.NewNop(),
		Sessions: sessions,
		Clock:    clk,
	})
	require.NoError(t, err)
	return sched, sessions, clk, node
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceSweepsExpiredSessions(t *testing.T) {
	sched, sessions, clk, node := setup(t)
	ctx := context.Background()
	accountID := node.Generate()

	stale, err := sessions.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	clk.Advance(31 * 24 * time.Hour)
	fresh, err := sessions.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(ctx))

	assert.True(t, sessions.Validate(ctx, fresh.ID))
	assert.False(t, sessions.Validate(ctx, stale.ID))

	active, err := sessions.ActiveSessions(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	sched, sessions, clk, node := setup(t)
	ctx := context.Background()

	_, err := sessions.Create(ctx, node.Generate(), domain.ClientContext{})
	require.NoError(t, err)
	clk.Advance(31 * 24 * time.Hour)

	require.NoError(t, sched.RunOnce(ctx))
	require.NoError(t, sched.RunOnce(ctx))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	sched, _, _, _ := setup(t)
	sched.cfg.RunInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.RunForever(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
