package backup

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tolelom/quorumchain/canon"
	"github.com/tolelom/quorumchain/core"
)

// DefaultTTL is the number of backup entries kept before the oldest is
// unpinned, per spec §6.
const DefaultTTL = 10

// Service implements the backup/restore flow: canonical-JSON snapshot,
// AES-256-GCM encryption, content-addressed storage, and a boltdb index
// with TTL eviction.
type Service struct {
	content ContentStore
	index   IndexStore
	key     [32]byte
	ttl     int
}

// NewService builds a Service. key must be exactly 32 bytes (AES-256).
func NewService(content ContentStore, index IndexStore, key [32]byte) *Service {
	return &Service{content: content, index: index, key: key, ttl: DefaultTTL}
}

type snapshotEnvelope struct {
	State       *core.WorldState `json:"state"`
	TimestampMs int64            `json:"timestamp_ms"`
}

// Backup serialises snapshot to canonical JSON, encrypts it, stores the
// ciphertext keyed by its own SHA-256 hash, and appends an index entry.
// When the index exceeds ttl entries, the oldest is unpinned in a
// detached goroutine. Callers must never hold the coordinator's write
// lock while calling this — it does network-equivalent I/O.
func (s *Service) Backup(ctx context.Context, snapshot *core.WorldState) (string, error) {
	nowMs := time.Now().UnixMilli()
	plain, err := canon.Marshal(snapshotEnvelope{State: snapshot, TimestampMs: nowMs})
	if err != nil {
		return "", fmt.Errorf("backup: marshal snapshot: %w", err)
	}
	ciphertext, err := s.encrypt(plain)
	if err != nil {
		return "", fmt.Errorf("backup: encrypt: %w", err)
	}
	sum := sha256.Sum256(ciphertext)
	cid := hex.EncodeToString(sum[:])

	if err := s.content.Put(cid, ciphertext); err != nil {
		return "", fmt.Errorf("backup: put content: %w", err)
	}
	entry := IndexEntry{Cid: cid, Height: snapshot.LatestHeight, TimestampMs: nowMs}
	if err := s.index.Append(entry); err != nil {
		return "", fmt.Errorf("backup: append index: %w", err)
	}

	go s.evictIfOverTTL()
	return cid, nil
}

func (s *Service) evictIfOverTTL() {
	count, err := s.index.Count()
	if err != nil {
		log.Printf("[backup] count index: %v", err)
		return
	}
	if count <= s.ttl {
		return
	}
	oldest, ok, err := s.index.Oldest()
	if err != nil || !ok {
		return
	}
	if err := s.content.Delete(oldest.Cid); err != nil {
		log.Printf("[backup] unpin %s: %v", oldest.Cid, err)
		return
	}
	if err := s.index.Remove(oldest.Cid); err != nil {
		log.Printf("[backup] remove index entry %s: %v", oldest.Cid, err)
	}
}

// RestoreRequest is the {state, cid, force} shape spec §6 describes.
type RestoreRequest struct {
	State *core.WorldState
	Cid   string
	Force bool
}

// Restore validates req against the index (anti-rollback: cid must match
// the most recent entry) and against currentHeight (only allowed at
// height 0 unless Force), and on success returns the decrypted,
// authenticated state recorded under that cid. req.State is not
// consulted.
func (s *Service) Restore(ctx context.Context, req RestoreRequest, currentHeight uint64) (*core.WorldState, error) {
	latest, ok, err := s.index.Latest()
	if err != nil {
		return nil, fmt.Errorf("backup: read index: %w", err)
	}
	if !ok || latest.Cid != req.Cid {
		return nil, core.NewError(core.KindCidMismatch, "cid %s is not the most recent backup", req.Cid)
	}
	if currentHeight != 0 && !req.Force {
		return nil, core.NewError(core.KindAlreadyInitialised, "chain already at height %d, force required", currentHeight)
	}
	ciphertext, err := s.content.Get(req.Cid)
	if err != nil {
		return nil, fmt.Errorf("backup: fetch content: %w", err)
	}
	plain, err := s.decrypt(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("backup: decrypt: %w", err)
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, fmt.Errorf("backup: unmarshal snapshot: %w", err)
	}
	return env.State, nil
}

// encrypt produces IV(12) || AES-256-GCM(ciphertext || tag16).
func (s *Service) encrypt(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, iv, plain, nil)
	return append(iv, sealed...), nil
}

func (s *Service) decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	iv, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, iv, sealed, nil)
}
