// Package audit records state-mutating operations to the activity log.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/crewplan/crewplan/internal/models"
	"github.com/crewplan/crewplan/internal/store"
)

// Recorder writes audit entries for mutating operations. Recording is
// best-effort: a failed write is logged, never surfaced to the caller.
type Recorder struct {
	store *store.Store
}

// NewRecorder creates a Recorder backed by the given store.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes one audit entry. Inputs are hashed, not stored, so the log
// never holds raw payloads.
func (r *Recorder) Record(action string, inputs interface{}, outcome, entityID string) {
	if r == nil || r.store == nil {
		return
	}
	entry := models.ActivityEntry{
		Action:     action,
		InputsHash: hashInputs(inputs),
		Outcome:    outcome,
		EntityID:   entityID,
		Timestamp:  time.Now().UTC(),
	}
	if err := r.store.WriteActivity(entry); err != nil {
		log.Printf("audit: record %s: %v", action, err)
	}
}

func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		data = []byte("unserializable")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
