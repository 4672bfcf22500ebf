package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/sim/state"
)

const Version = 1

// Header is written as a JSON line ahead of the msgpack body so tools can inspect a
// snapshot without decoding it.
type Header struct {
	Version  int    `json:"version"`
	Requests uint64 `json:"requests"` // executed requests covered
	Pets     int    `json:"pets"`
	Battles  int    `json:"battles"`
	TakenAt  int64  `json:"taken_at"` // unix seconds, wall clock
}

type SnapshotV1 struct {
	Header Header
	State  state.Dump
}

// Capture reads the whole store in one view transaction.
func Capture(ctx context.Context, s kv.Store, requests uint64) (SnapshotV1, error) {
	var snap SnapshotV1
	err := s.View(ctx, func(tx kv.Tx) error {
		d, err := state.New(tx).Dump()
		if err != nil {
			return err
		}
		snap.State = d
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("capture: %w", err)
	}
	snap.Header = Header{
		Version:  Version,
		Requests: requests,
		Pets:     len(snap.State.Pets),
		Battles:  len(snap.State.Battles),
		TakenAt:  time.Now().UTC().Unix(),
	}
	return snap, nil
}

// Restore replaces the store contents with snap in one transaction.
func Restore(ctx context.Context, s kv.Store, snap SnapshotV1) error {
	if snap.Header.Version != Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return s.Update(ctx, func(tx kv.Tx) error {
		return state.New(tx).Restore(snap.State)
	})
}

// WriteSnapshot writes snap to path through a temporary file.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := msgpack.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	// The msgpack body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := msgpack.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("msgpack decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// PathFor names the snapshot taken after n requests.
func PathFor(dir string, n uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%012d.snap.zst", n))
}
