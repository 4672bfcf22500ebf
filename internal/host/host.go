// Package host wires the engine to its store, the local chain and the
// optional audit, index, snapshot and metrics sinks.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/gateway/localchain"
	"petquest.ai/internal/metrics"
	"petquest.ai/internal/persistence/indexdb"
	"petquest.ai/internal/persistence/kv"
	persistlog "petquest.ai/internal/persistence/log"
	"petquest.ai/internal/persistence/snapshot"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/engine"
	"petquest.ai/internal/sim/state"
	"petquest.ai/internal/sim/tuning"
)

type Runtime struct {
	tune tuning.Tuning
	log  *logrus.Logger

	store     kv.Store
	chain     *localchain.Chain
	engine    *engine.Engine
	metrics   *metrics.Collector
	validator *protocol.Validator

	audit *persistlog.AuditLogger
	index *indexdb.SQLiteIndex

	seq           uint64
	sinceSnapshot int
}

// Open builds a runtime from t. An empty store path keeps state in memory and
// an empty chain fixture starts from an empty chain.
func Open(ctx context.Context, t tuning.Tuning, log *logrus.Logger) (*Runtime, error) {
	r := &Runtime{tune: t, log: log, metrics: metrics.NewCollector()}
	ok := false
	defer func() {
		if !ok {
			_ = r.Close()
		}
	}()

	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	r.validator = v

	if t.StorePath != "" {
		b, err := kv.OpenBolt(t.StorePath, state.Buckets...)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		r.store = b
	} else {
		r.store = kv.NewMemory()
	}

	if t.ChainFixture != "" {
		c, err := localchain.LoadFixture(t.ChainFixture)
		if err != nil {
			return nil, err
		}
		r.chain = c
	} else {
		r.chain = localchain.New()
	}

	eng, err := engine.New(engine.Options{
		Store:        r.store,
		Gateway:      gateway.New(r.chain, r.chain),
		Logger:       log,
		Metrics:      r.metrics,
		UnknownInput: t.UnknownInput,
	})
	if err != nil {
		return nil, err
	}
	r.engine = eng

	if t.StorePath == "" && t.SnapshotDir != "" {
		if path, n := latestSnapshot(t.SnapshotDir); path != "" {
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return nil, err
			}
			if err := snapshot.Restore(ctx, r.store, snap); err != nil {
				return nil, err
			}
			r.seq = n
			log.WithField("path", path).Info("resumed from snapshot")
		}
	}
	if _, err := eng.Instantiate(ctx, ConfigFrom(t)); err != nil {
		return nil, err
	}

	if t.AuditDir != "" {
		last, err := lastAuditSeq(t.AuditDir)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if last > r.seq {
			r.seq = last
		}
		r.audit = persistlog.NewAuditLogger(t.AuditDir)
	}
	if t.IndexPath != "" {
		idx, err := indexdb.OpenSQLite(t.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		r.index = idx
	}

	log.WithFields(logrus.Fields{
		"store":     storeName(t.StorePath),
		"audit":     t.AuditDir != "",
		"index":     t.IndexPath != "",
		"snapshots": t.SnapshotDir != "",
		"seq":       r.seq,
	}).Info("runtime ready")
	ok = true
	return r, nil
}

// ConfigFrom maps tuning onto the stored engine config.
func ConfigFrom(t tuning.Tuning) state.Config {
	return state.Config{Admin: t.Admin, MaxStats: t.MaxStats, Entropy: []byte(t.Entropy)}
}

func storeName(path string) string {
	if path == "" {
		return "memory"
	}
	return path
}

func latestSnapshot(dir string) (string, uint64) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	var (
		best string
		n    uint64
	)
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || v > n {
			best, n = filepath.Join(dir, name), v
		}
	}
	return best, n
}

func lastAuditSeq(dir string) (uint64, error) {
	var last uint64
	err := persistlog.ReadAuditDir(dir, func(e persistlog.AuditEntry) error {
		if e.Seq > last {
			last = e.Seq
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return last, err
}

func (r *Runtime) Chain() *localchain.Chain    { return r.chain }
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }
func (r *Runtime) Seq() uint64                 { return r.seq }

// HandleLine decodes one JSON request and runs it.
func (r *Runtime) HandleLine(ctx context.Context, line []byte) protocol.Response {
	req, err := r.validator.DecodeRequest(line)
	if err != nil {
		base, _ := protocol.DecodeBase(line)
		r.log.WithError(err).Warn("request rejected by schema")
		return protocol.Response{
			Type:            base.Type,
			ProtocolVersion: protocol.Version,
			Code:            protocol.CodeOf(err),
			Message:         protocol.MessageOf(err),
		}
	}
	return r.Handle(ctx, req)
}

// Handle executes req, applies its instructions to the chain and feeds the
// audit, index and snapshot sinks. Queries are not audited.
func (r *Runtime) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	resp := r.engine.Execute(ctx, req)
	if resp.OK && len(resp.Instructions) > 0 {
		if err := r.chain.Apply(resp.Instructions); err != nil {
			r.log.WithError(err).WithField("request_id", resp.ID).Error("apply instructions")
		}
	}
	if protocol.IsQuery(req.Type) {
		return resp
	}

	r.seq++
	entry := persistlog.NewAuditEntry(r.seq, req, resp)
	if r.audit != nil {
		if err := r.audit.WriteAudit(entry); err != nil {
			r.log.WithError(err).Error("write audit")
		}
	}
	if r.index != nil {
		_ = r.index.WriteAudit(entry)
	}

	r.sinceSnapshot++
	if r.tune.SnapshotDir != "" && r.tune.SnapshotEveryRequests > 0 && r.sinceSnapshot >= r.tune.SnapshotEveryRequests {
		if _, err := r.Snapshot(ctx); err != nil {
			r.log.WithError(err).Error("periodic snapshot")
		}
	}
	return resp
}

// Snapshot writes the current state to the snapshot dir.
func (r *Runtime) Snapshot(ctx context.Context) (string, error) {
	if r.tune.SnapshotDir == "" {
		return "", errors.New("snapshot_dir is not configured")
	}
	snap, err := snapshot.Capture(ctx, r.store, r.seq)
	if err != nil {
		return "", err
	}
	path := snapshot.PathFor(r.tune.SnapshotDir, r.seq)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	r.sinceSnapshot = 0
	r.metrics.RecordSnapshot()
	if r.index != nil {
		r.index.RecordSnapshot(path, snap.Header)
	}
	r.log.WithFields(logrus.Fields{"path": path, "pets": snap.Header.Pets, "battles": snap.Header.Battles}).Info("snapshot written")
	return path, nil
}

// Close flushes the sinks and writes the metrics textfile if one is configured.
func (r *Runtime) Close() error {
	var errs []error
	if r.audit != nil {
		errs = append(errs, r.audit.Close())
	}
	if r.index != nil {
		errs = append(errs, r.index.Close())
	}
	if r.tune.MetricsTextfile != "" && r.metrics != nil {
		errs = append(errs, r.metrics.WriteTextfile(r.tune.MetricsTextfile))
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}
