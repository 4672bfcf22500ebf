package host

import (
	"context"

	"github.com/sirupsen/logrus"

	persistlog "petquest.ai/internal/persistence/log"
	"petquest.ai/internal/sim/tuning"
)

type Mismatch struct {
	Seq       uint64 `json:"seq"`
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Want      string `json:"want"`
	Got       string `json:"got"`
}

type ReplayReport struct {
	Entries    int        `json:"entries"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Replay re-executes the audit log in dir against a fresh in-memory store and
// the configured chain fixture, comparing response digests entry by entry.
func Replay(ctx context.Context, t tuning.Tuning, dir string, log *logrus.Logger) (ReplayReport, error) {
	var rep ReplayReport

	fresh := t
	fresh.StorePath = ""
	fresh.AuditDir = ""
	fresh.IndexPath = ""
	fresh.SnapshotDir = ""
	fresh.MetricsTextfile = ""
	r, err := Open(ctx, fresh, log)
	if err != nil {
		return rep, err
	}
	defer r.Close()

	err = persistlog.ReadAuditDir(dir, func(e persistlog.AuditEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Entries++
		resp := r.Handle(ctx, e.Request)
		got := persistlog.ResponseDigest(resp)
		if got != e.Digest {
			rep.Mismatches = append(rep.Mismatches, Mismatch{
				Seq:       e.Seq,
				RequestID: e.Request.ID,
				Type:      e.Request.Type,
				Want:      e.Digest,
				Got:       got,
			})
		}
		return nil
	})
	return rep, err
}
