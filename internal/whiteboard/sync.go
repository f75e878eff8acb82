// Package whiteboard keeps the shared drawing log and the shared content of a room.
package whiteboard

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
)

// Sync holds an ordered log of draw operations and a content document with a version counter.
// Operations are rendered in arrival order; there is no merging of concurrent edits.
type Sync struct {
	now     func() time.Time
	ops     []domain.DrawOp
	content map[string]json.RawMessage
	version uint64
}

func NewSync(now func() time.Time) *Sync {
	if now == nil {
		now = time.Now
	}

	return &Sync{
		now:     now,
		content: make(map[string]json.RawMessage),
	}
}

// AddDrawing appends op, filling in its ID and timestamp when absent.
func (s *Sync) AddDrawing(op domain.DrawOp) domain.DrawOp {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = s.now()
	}

	s.ops = append(s.ops, op)
	return op
}

// ClearDrawings is the only way operations leave the log.
func (s *Sync) ClearDrawings() {
	s.ops = nil
}

// ReplaceContent swaps the whole content and returns the new version.
func (s *Sync) ReplaceContent(content map[string]json.RawMessage) uint64 {
	s.content = maps.Clone(content)
	if s.content == nil {
		s.content = make(map[string]json.RawMessage)
	}

	s.version++
	return s.version
}

// PatchContent merges patch into the content and returns the new version.
// A key patched with JSON null is removed.
func (s *Sync) PatchContent(patch map[string]json.RawMessage) uint64 {
	for k, v := range patch {
		if string(v) == "null" {
			delete(s.content, k)
			continue
		}
		s.content[k] = v
	}

	s.version++
	return s.version
}

func (s *Sync) Drawings() []domain.DrawOp {
	return append([]domain.DrawOp(nil), s.ops...)
}

func (s *Sync) Content() map[string]json.RawMessage {
	return maps.Clone(s.content)
}

// Version is the content sync version. It only grows; consumers compare it to detect they must resync.
func (s *Sync) Version() uint64 { return s.version }
