package host

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"petquest.ai/internal/logging"
	persistlog "petquest.ai/internal/persistence/log"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/tuning"
)

func testTuning(t *testing.T) tuning.Tuning {
	dir := t.TempDir()
	tune := tuning.Defaults()
	tune.Admin = "secret1admin"
	tune.Entropy = "host-test"
	tune.AuditDir = filepath.Join(dir, "audit")
	tune.SnapshotDir = filepath.Join(dir, "snapshots")
	tune.IndexPath = filepath.Join(dir, "index", "index.db")
	tune.MetricsTextfile = filepath.Join(dir, "metrics.prom")
	tune.SnapshotEveryRequests = 2
	return tune
}

func TestRuntime_HandleAuditReplay(t *testing.T) {
	ctx := context.Background()
	tune := testTuning(t)
	log := logging.Discard()

	r, err := Open(ctx, tune, log)
	require.NoError(t, err)

	resp := r.HandleLine(ctx, []byte(`{"type":"MINT_PET","caller":"secret1alice","now":1700000000,"id":"m1"}`))
	require.True(t, resp.OK, resp.Message)
	require.Equal(t, "PET_0", resp.Attributes["pet_id"])

	resp = r.HandleLine(ctx, []byte(`{"type":"START_QUEST","caller":"secret1alice","now":1700000010,"id":"q1","pet_id":"PET_0","quest_type":"Trial Of Titans"}`))
	require.True(t, resp.OK, resp.Message)

	resp = r.HandleLine(ctx, []byte(`{"type":"RELEASE_PET","caller":"secret1bob","now":1700000020,"id":"x1","pet_id":"PET_0"}`))
	require.False(t, resp.OK)
	require.Equal(t, protocol.ErrNoPermission, resp.Code)

	resp = r.HandleLine(ctx, []byte(`{"type":"MY_PETS","caller":"secret1alice","now":1700000030}`))
	require.True(t, resp.OK, resp.Message)

	bad := r.HandleLine(ctx, []byte(`{"type":"MINT_PET"}`))
	require.Equal(t, protocol.ErrBadRequest, bad.Code)

	require.Equal(t, uint64(3), r.Seq())
	require.NoError(t, r.Close())
	require.FileExists(t, tune.MetricsTextfile)
	require.FileExists(t, filepath.Join(tune.SnapshotDir, "000000000002.snap.zst"))

	var entries []persistlog.AuditEntry
	require.NoError(t, persistlog.ReadAuditDir(tune.AuditDir, func(e persistlog.AuditEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 3)
	require.Equal(t, "x1", entries[2].Request.ID)

	rep, err := Replay(ctx, tune, tune.AuditDir, log)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Entries)
	require.Empty(t, rep.Mismatches)
}

func TestRuntime_ResumesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	tune := testTuning(t)
	tune.AuditDir = ""
	tune.SnapshotEveryRequests = 0
	log := logging.Discard()

	r, err := Open(ctx, tune, log)
	require.NoError(t, err)
	require.True(t, r.HandleLine(ctx, []byte(`{"type":"MINT_PET","caller":"secret1alice","now":1}`)).OK)
	path, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tune.SnapshotDir, "000000000001.snap.zst"), path)
	require.NoError(t, r.Close())

	r, err = Open(ctx, tune, log)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, uint64(1), r.Seq())

	// the counter survived, so the next pet gets a fresh id
	resp := r.HandleLine(ctx, []byte(`{"type":"MINT_PET","caller":"secret1alice","now":2}`))
	require.True(t, resp.OK, resp.Message)
	require.Equal(t, "PET_1", resp.Attributes["pet_id"])
}
