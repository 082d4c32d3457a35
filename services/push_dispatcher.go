package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider delivers a notification to a set of device tokens. The real
// implementation is FCM; tests inject a mock.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]any) error
}

// PushDispatcher delivers notifications to users without a live presence
// connection. Jobs are processed by a small worker pool; delivery failures are
// logged and dropped, the user sees the state on next fetch regardless.
type PushDispatcher struct {
	db       *pgxpool.Pool
	provider PushProvider
	jobQueue chan pushJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

type pushJob struct {
	userID uuid.UUID
	title  string
	body   string
	data   map[string]any
}

func NewPushDispatcher(db *pgxpool.Pool) *PushDispatcher {
	d := &PushDispatcher{
		db:       db,
		jobQueue: make(chan pushJob, 100),
		stopChan: make(chan struct{}),
	}

	for i := 0; i < 3; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// SetProvider injects the real push provider from main.go. Without a provider
// the dispatcher silently drops jobs.
func (d *PushDispatcher) SetProvider(provider PushProvider) {
	d.provider = provider
}

func (d *PushDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *PushDispatcher) processJob(job pushJob) {
	if d.provider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := d.db.Query(ctx, `SELECT token FROM device_tokens WHERE user_id = $1`, job.userID)
	if err != nil {
		log.Printf("PushDispatcher: failed to load tokens for %s: %v", job.userID, err)
		return
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			continue
		}
		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		return
	}

	if err := d.provider.SendPush(ctx, tokens, job.title, job.body, job.data); err != nil {
		log.Printf("PushDispatcher: push failed for %s: %v", job.userID, err)
	}
}

// Enqueue schedules a push. Non-blocking; a full queue drops the job.
func (d *PushDispatcher) Enqueue(userID uuid.UUID, title, body string, data map[string]any) {
	select {
	case d.jobQueue <- pushJob{userID: userID, title: title, body: body, data: data}:
	default:
		log.Printf("PushDispatcher: queue full, dropping push for %s", userID)
	}
}

// Stop drains the workers gracefully.
func (d *PushDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}

// MockPushProvider logs instead of sending. Used in tests.
type MockPushProvider struct{}

func (m *MockPushProvider) SendPush(ctx context.Context, tokens []string, title, body string, data map[string]any) error {
	log.Printf("MOCK PUSH: Sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
