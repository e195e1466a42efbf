// Package uploadqueue is the local durable queue of canonicalized JSON
// blobs awaiting out-of-band upload to the CAS. It is a side channel: the
// attribution core never depends on it for correctness.
//
// Records are keyed by the SHA-256 of their canonical payload, so identical
// payloads deduplicate on insert. Failed uploads retry with exponential
// backoff; in-flight records hold a lease that is reclaimed after ten
// minutes of staleness.
package uploadqueue

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli/jsonutil"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // database/sql driver
)

// leaseTimeout is how long a dequeued record stays locked before another
// worker may reclaim it.
const leaseTimeout = 10 * time.Minute

// backoffSchedule maps attempt count (1-indexed) to the wait before the
// next retry. Attempts beyond the schedule reuse the final interval.
var backoffSchedule = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// Record is one queued payload.
type Record struct {
	ID         int64
	Hash       string
	Payload    []byte
	Attempts   int
	LeaseToken string
}

// Queue is a thread-safe handle on the SQLite-backed queue.
type Queue struct {
	mu        sync.Mutex
	db        *sql.DB
	machineID string
}

// Open opens (creating if needed) the queue database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening queue db: %w", err)
	}
	db.SetMaxOpenConns(1)

	q := &Queue{db: db, machineID: protectedMachineID()}
	if err := q.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

// Close releases the database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

func (q *Queue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS cas_sync_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL UNIQUE,
			payload BLOB NOT NULL,
			machine_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			next_retry_at INTEGER NOT NULL DEFAULT 0,
			processing_started_at INTEGER,
			lease_token TEXT,
			last_error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_cas_sync_queue_retry
			ON cas_sync_queue(next_retry_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing queue schema: %w", err)
	}
	return nil
}

// Enqueue canonicalizes v, keys it by its SHA-256, and inserts it. Existing
// payloads with the same digest are left untouched. Returns the digest.
func (q *Queue) Enqueue(v any) (string, error) {
	payload, err := jsonutil.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return q.EnqueueRaw(payload)
}

// EnqueueRaw inserts an already-canonical payload.
func (q *Queue) EnqueueRaw(payload []byte) (string, error) {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])

	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`
		INSERT OR IGNORE INTO cas_sync_queue (hash, payload, machine_id, created_at)
		VALUES (?, ?, ?, ?)`,
		hash, payload, q.machineID, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("enqueueing payload: %w", err)
	}
	return hash, nil
}

// DequeueBatch leases up to limit records that are due for processing:
// next_retry_at has passed and no fresh lease exists. Leased records carry a
// token that Done and Fail verify.
func (q *Queue) DequeueBatch(limit int) ([]Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().Unix()
	staleBefore := time.Now().Add(-leaseTimeout).Unix()

	rows, err := q.db.Query(`
		SELECT id, hash, payload, attempts
		FROM cas_sync_queue
		WHERE next_retry_at <= ?
		  AND (processing_started_at IS NULL OR processing_started_at <= ?)
		ORDER BY id
		LIMIT ?`,
		now, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("querying queue: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Hash, &r.Payload, &r.Attempts); err != nil {
			return nil, fmt.Errorf("scanning queue row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue rows: %w", err)
	}

	for i := range records {
		records[i].LeaseToken = uuid.NewString()
		if _, err := q.db.Exec(`
			UPDATE cas_sync_queue
			SET processing_started_at = ?, lease_token = ?
			WHERE id = ?`,
			now, records[i].LeaseToken, records[i].ID); err != nil {
			return nil, fmt.Errorf("leasing queue record: %w", err)
		}
	}
	return records, nil
}

// Done deletes a successfully uploaded record. A stale lease token is a
// no-op: some other worker already reclaimed the record.
func (q *Queue) Done(r Record) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.Exec(`DELETE FROM cas_sync_queue WHERE id = ? AND lease_token = ?`, r.ID, r.LeaseToken)
	if err != nil {
		return fmt.Errorf("deleting queue record: %w", err)
	}
	return nil
}

// Fail records an upload failure, bumps the attempt counter, schedules the
// next retry per the backoff schedule, and releases the lease.
func (q *Queue) Fail(r Record, uploadErr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	attempts := r.Attempts + 1
	nextRetry := time.Now().Add(backoffFor(attempts)).Unix()

	_, err := q.db.Exec(`
		UPDATE cas_sync_queue
		SET attempts = ?, next_retry_at = ?, last_error = ?,
		    processing_started_at = NULL, lease_token = NULL
		WHERE id = ? AND lease_token = ?`,
		attempts, nextRetry, uploadErr, r.ID, r.LeaseToken)
	if err != nil {
		return fmt.Errorf("recording queue failure: %w", err)
	}
	return nil
}

// Len returns the number of queued records.
func (q *Queue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM cas_sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue records: %w", err)
	}
	return n, nil
}

// backoffFor returns the wait after the given attempt count.
func backoffFor(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempts-1]
}

// protectedMachineID fingerprints the machine without leaking the raw
// hardware id; queue rows carry it so the upload service can partition
// retries per machine.
func protectedMachineID() string {
	id, err := machineid.ProtectedID("git-ai")
	if err != nil {
		return ""
	}
	return id
}
