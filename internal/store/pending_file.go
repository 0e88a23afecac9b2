package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/py-sit/skyalert/internal/models"
)

// MaxPendingEntries caps the legacy staging file; older entries are backed
// up and trimmed away past this.
const MaxPendingEntries = 1000

// PendingFile is the legacy file-backed staging list of rendered emails.
// The durable mail_task queue is the source of truth; this file survives as
// a lower-priority source consulted only when the queue is empty, and is
// cleared after each queue-fed batch so the next cycle cannot process the
// same payloads twice.
type PendingFile struct {
	mu        sync.Mutex
	path      string
	backupDir string
}

// NewPendingFile creates the staging file handle under dataDir.
func NewPendingFile(dataDir string) *PendingFile {
	return &PendingFile{
		path:      filepath.Join(dataDir, "pending_emails.json"),
		backupDir: filepath.Join(dataDir, "backups"),
	}
}

// Load reads the staged payloads. A missing file reads as empty.
func (p *PendingFile) Load() ([]models.EmailPayload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

// Replace backs up any existing data and writes the new staging list,
// trimmed to the retention cap.
func (p *PendingFile) Replace(payloads []models.EmailPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.backupLocked(); err != nil {
		return err
	}
	if len(payloads) > MaxPendingEntries {
		payloads = payloads[len(payloads)-MaxPendingEntries:]
	}
	return p.writeLocked(payloads)
}

// Remove deletes every staged entry matching the payload's recipient,
// subject, region and weather type. Called when a staged email is approved,
// rejected, or dispatched through the queue.
func (p *PendingFile) Remove(payload models.EmailPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.loadLocked()
	if err != nil {
		return err
	}
	kept := existing[:0]
	for _, e := range existing {
		if e.ToEmail == payload.ToEmail && e.Subject == payload.Subject &&
			e.Region == payload.Region && e.WeatherType == payload.WeatherType {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == len(existing) {
		return nil
	}
	return p.writeLocked(kept)
}

// Clear backs up and empties the staging file.
func (p *PendingFile) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.backupLocked(); err != nil {
		return err
	}
	return p.writeLocked([]models.EmailPayload{})
}

func (p *PendingFile) loadLocked() ([]models.EmailPayload, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	var payloads []models.EmailPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.path, err)
	}
	return payloads, nil
}

func (p *PendingFile) writeLocked(payloads []models.EmailPayload) error {
	if payloads == nil {
		payloads = []models.EmailPayload{}
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending emails: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p.path, err)
	}
	return nil
}

// backupLocked copies the current file into the backup dir when it holds
// data. Empty or missing files are not worth a backup.
func (p *PendingFile) backupLocked() error {
	existing, err := p.loadLocked()
	if err != nil {
		// A corrupt staging file still gets backed up for inspection.
		data, readErr := os.ReadFile(p.path)
		if readErr != nil {
			return nil
		}
		return p.writeBackup(data)
	}
	if len(existing) == 0 {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	return p.writeBackup(data)
}

func (p *PendingFile) writeBackup(data []byte) error {
	if err := os.MkdirAll(p.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("pending_emails_%s.json", time.Now().Format("20060102150405"))
	if err := os.WriteFile(filepath.Join(p.backupDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}
