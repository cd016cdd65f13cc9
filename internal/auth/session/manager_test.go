package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/brightlearn/campus/internal/auth/device"
	"github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/repository"
	"github.com/brightlearn/campus/internal/clock"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupManager(t *testing.T) (*Manager, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mgr := NewManager(
		repository.NewSessionRepository(conn),
		device.NoopLocator{},
		config.NewStaticSecurityPolicyHolder(config.DefaultSecurityPolicy()),
		clk,
		node,
		zap.NewNop(),
	)
	return mgr, clk, node
}

func TestCreateCapturesDeviceMetadata(t *testing.T) {
	mgr, clk, node := setupManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, node.Generate(), domain.ClientContext{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		IPAddress: "203.0.113.9",
	})
	require.NoError(t, err)

	assert.Equal(t, "MacBook", sess.DeviceName)
	assert.Equal(t, domain.DeviceDesktop, sess.DeviceType)
	assert.Equal(t, "203.0.113.9", sess.IPAddress)
	assert.Equal(t, clk.Now().Add(30*24*time.Hour), sess.ExpiresAt)
	assert.True(t, mgr.Validate(ctx, sess.ID))
}

func TestAttachTokenStoresDigest(t *testing.T) {
	mgr, _, node := setupManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, node.Generate(), domain.ClientContext{})
	require.NoError(t, err)
	assert.Equal(t, "pending", sess.TokenHash)

	require.NoError(t, mgr.AttachToken(ctx, sess.ID, "raw-token"))

	got, err := mgr.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	want := sha256.Sum256([]byte("raw-token"))
	assert.Equal(t, hex.EncodeToString(want[:]), got.TokenHash)
}

func TestValidateExpiry(t *testing.T) {
	mgr, clk, node := setupManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, node.Generate(), domain.ClientContext{})
	require.NoError(t, err)

	clk.Advance(30*24*time.Hour - time.Minute)
	assert.True(t, mgr.Validate(ctx, sess.ID))

	clk.Advance(2 * time.Minute)
	assert.False(t, mgr.Validate(ctx, sess.ID))
}

func TestValidateUnknownSession(t *testing.T) {
	mgr, _, node := setupManager(t)
	assert.False(t, mgr.Validate(context.Background(), node.Generate()))
}

func TestRevokeImmediatelyInvalidates(t *testing.T) {
	mgr, _, node := setupManager(t)
	ctx := context.Background()
	accountID := node.Generate()

	current, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)
	other, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(ctx, other.ID, accountID, current.ID))
	assert.False(t, mgr.Validate(ctx, other.ID))
	assert.True(t, mgr.Validate(ctx, current.ID))
}

func TestRevokeGuards(t *testing.T) {
	mgr, _, node := setupManager(t)
	ctx := context.Background()
	accountID := node.Generate()

	current, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	err = mgr.Revoke(ctx, current.ID, accountID, current.ID)
	assert.ErrorIs(t, err, domain.ErrSelfRevocation)

	err = mgr.Revoke(ctx, node.Generate(), accountID, current.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	foreign, err := mgr.Create(ctx, node.Generate(), domain.ClientContext{})
	require.NoError(t, err)
	err = mgr.Revoke(ctx, foreign.ID, accountID, current.ID)
	assert.ErrorIs(t, err, domain.ErrSessionForbidden)
}

func TestActiveSessionsExcludesRevokedAndExpired(t *testing.T) {
	mgr, clk, node := setupManager(t)
	ctx := context.Background()
	accountID := node.Generate()

	first, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	clk.Advance(31 * 24 * time.Hour) // first is now expired

	second, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)
	third, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)
	require.NoError(t, mgr.Revoke(ctx, third.ID, accountID, second.ID))

	active, err := mgr.ActiveSessions(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.NotEqual(t, first.ID, active[0].ID)
}

func TestCleanupRemovesExpiredAndOldRevoked(t *testing.T) {
	mgr, clk, node := setupManager(t)
	ctx := context.Background()
	accountID := node.Generate()

	expired, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	clk.Advance(24 * time.Hour)
	revoked, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)
	keeper, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)
	require.NoError(t, mgr.Revoke(ctx, revoked.ID, accountID, keeper.ID))

	// past expired's 30-day lifetime and past the revoked retention window
	clk.Advance(35 * 24 * time.Hour)
	live, err := mgr.Create(ctx, accountID, domain.ClientContext{})
	require.NoError(t, err)

	n, err := mgr.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n) // expired + revoked (also expired by now) + keeper

	assert.True(t, mgr.Validate(ctx, live.ID))
	assert.False(t, mgr.Validate(ctx, expired.ID))
}

func TestTouchUpdatesLastActive(t *testing.T) {
	mgr, clk, node := setupManager(t)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, node.Generate(), domain.ClientContext{})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	mgr.Touch(ctx, sess.ID)

	got, err := mgr.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), got.LastActiveAt.UTC())

	// unknown id must not panic or error
	mgr.Touch(ctx, node.Generate())
}
