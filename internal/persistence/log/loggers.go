package log

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"petquest.ai/internal/protocol"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// rotateLocked starts a new zstd frame in the hour's file. Appending to an existing
// file yields concatenated frames, which the reader decodes in sequence.
func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// AuditEntry records one executed request and what it produced.
type AuditEntry struct {
	Seq          uint64                 `json:"seq"`
	At           int64                  `json:"at"` // wall clock, unix ms
	Request      protocol.Request       `json:"request"`
	OK           bool                   `json:"ok"`
	Code         string                 `json:"code,omitempty"`
	Attributes   map[string]string      `json:"attributes,omitempty"`
	Instructions []protocol.Instruction `json:"instructions,omitempty"`
	Digest       string                 `json:"digest"`
}

// NewAuditEntry builds the entry for req/resp. The request id the engine assigned
// is kept so a replay reproduces it.
func NewAuditEntry(seq uint64, req protocol.Request, resp protocol.Response) AuditEntry {
	req.ID = resp.ID
	return AuditEntry{
		Seq:          seq,
		At:           time.Now().UnixMilli(),
		Request:      req,
		OK:           resp.OK,
		Code:         resp.Code,
		Attributes:   resp.Attributes,
		Instructions: resp.Instructions,
		Digest:       ResponseDigest(resp),
	}
}

// ResponseDigest hashes the state-relevant part of a response.
func ResponseDigest(resp protocol.Response) string {
	b, _ := json.Marshal(struct {
		OK           bool                   `json:"ok"`
		Code         string                 `json:"code"`
		Attributes   map[string]string      `json:"attributes"`
		Instructions []protocol.Instruction `json:"instructions"`
	}{resp.OK, resp.Code, resp.Attributes, resp.Instructions})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(dir, "audit")}
}

func (l *AuditLogger) WriteAudit(v AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }

// ListAuditFiles returns the audit files of dir in write order.
func ListAuditFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadAuditFile calls fn for each entry of path in order.
func ReadAuditFile(path string, fn func(AuditEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadAuditDir walks every audit file of dir.
func ReadAuditDir(dir string, fn func(AuditEntry) error) error {
	files, err := ListAuditFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := ReadAuditFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}
