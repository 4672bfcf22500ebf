package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"petquest.ai/internal/gateway"
	persistlog "petquest.ai/internal/persistence/log"
	"petquest.ai/internal/persistence/snapshot"
	"petquest.ai/internal/protocol"
)

// SQLiteIndex is a queryable secondary index over the audit log. The JSONL
// audit files stay the source of truth; rows are written by a single goroutine
// and dropped when the queue is full.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	audit    persistlog.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Requests uint64
	Path     string
	Pets     int
	Battles  int
	TakenAt  int64
}

// Stats reports queue pressure for the writer goroutine.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
}

// Activity is one indexed request.
type Activity struct {
	Seq       uint64
	RequestID string
	Type      string
	Caller    string
	Now       int64
	OK        bool
	Code      string
	PetID     string
	BattleID  *uint64
	QuestType string
	Digest    string
}

// Volume is the token flow recorded for one account.
type Volume struct {
	Minted uint64
	Burned uint64
	Pets   int
}

const queueSize = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS requests (
			seq INTEGER PRIMARY KEY,
			request_id TEXT NOT NULL,
			type TEXT NOT NULL,
			caller TEXT NOT NULL,
			now INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT NOT NULL,
			pet_id TEXT NOT NULL,
			battle_id INTEGER,
			quest_type TEXT NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_caller ON requests(caller, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_pet ON requests(pet_id);`,
		`CREATE TABLE IF NOT EXISTS instructions (
			seq INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			contract TEXT NOT NULL,
			kind TEXT NOT NULL,
			account TEXT NOT NULL,
			amount INTEGER NOT NULL,
			token_id TEXT NOT NULL,
			PRIMARY KEY (seq, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_instructions_account ON instructions(account);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			requests INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			pets INTEGER NOT NULL,
			battles INTEGER NOT NULL,
			taken_at INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteAudit(entry persistlog.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, h snapshot.Header) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Requests: h.Requests,
		Path:     path,
		Pets:     h.Pets,
		Battles:  h.Battles,
		TakenAt:  h.TakenAt,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Activity returns the most recent requests made by caller, newest first.
func (s *SQLiteIndex) Activity(ctx context.Context, caller string, limit int) ([]Activity, error) {
	caller = gateway.Canonical(caller)
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq,request_id,type,caller,now,ok,code,pet_id,battle_id,quest_type,digest
		 FROM requests WHERE caller=? ORDER BY seq DESC LIMIT ?`, caller, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			a        Activity
			ok       int
			battleID sql.NullInt64
		)
		if err := rows.Scan(&a.Seq, &a.RequestID, &a.Type, &a.Caller, &a.Now, &ok, &a.Code,
			&a.PetID, &battleID, &a.QuestType, &a.Digest); err != nil {
			return nil, err
		}
		a.OK = ok != 0
		if battleID.Valid {
			id := uint64(battleID.Int64)
			a.BattleID = &id
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Volumes sums the instructions that targeted account.
func (s *SQLiteIndex) Volumes(ctx context.Context, account string) (Volume, error) {
	account = gateway.Canonical(account)
	var v Volume
	row := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN kind=? THEN amount ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN kind=? THEN amount ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN kind=? THEN 1 ELSE 0 END),0)
		 FROM instructions WHERE account=?`,
		protocol.InstrMint, protocol.InstrBurnFrom, protocol.InstrMintNft, account)
	if err := row.Scan(&v.Minted, &v.Burned, &v.Pets); err != nil {
		return Volume{}, err
	}
	return v, nil
}

// LatestSnapshot returns the path of the newest recorded snapshot, or "" if none.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (string, uint64, error) {
	var (
		path string
		n    uint64
	)
	err := s.db.QueryRowContext(ctx, `SELECT path,requests FROM snapshots ORDER BY requests DESC LIMIT 1`).Scan(&path, &n)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	return path, n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRequest, _ := s.db.Prepare(`INSERT OR REPLACE INTO requests(seq,request_id,type,caller,now,ok,code,pet_id,battle_id,quest_type,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertInstr, _ := s.db.Prepare(`INSERT OR REPLACE INTO instructions(seq,idx,contract,kind,account,amount,token_id) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(requests,path,pets,battles,taken_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRequest, insertInstr, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			var battleID any
			if a.Request.BattleID != nil {
				battleID = int64(*a.Request.BattleID)
			}
			ok := 0
			if a.OK {
				ok = 1
			}
			if insertRequest != nil {
				if _, err := tx.Stmt(insertRequest).Exec(
					int64(a.Seq),
					a.Request.ID,
					a.Request.Type,
					gateway.Canonical(a.Request.Caller),
					a.Request.Now,
					ok,
					a.Code,
					a.Request.PetID,
					battleID,
					a.Request.QuestType,
					a.Digest,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, in := range a.Instructions {
				if insertInstr == nil {
					break
				}
				if _, err := tx.Stmt(insertInstr).Exec(int64(a.Seq), i, in.Contract, in.Kind, in.Account, int64(in.Amount), in.TokenID); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(int64(sn.Requests), sn.Path, sn.Pets, sn.Battles, sn.TakenAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
