package whiteboard_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/whiteboard"
)

func TestSync_Drawings(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := whiteboard.NewSync(func() time.Time { return now })

	s.AddDrawing(domain.DrawOp{ID: "d2", UserID: "bob", Tool: "pen"})
	got := s.AddDrawing(domain.DrawOp{UserID: "alice", Tool: "eraser"})
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, now, got.Timestamp)

	ops := s.Drawings()
	require.Len(t, ops, 2)
	assert.Equal(t, "d2", ops[0].ID, "arrival order is rendering order")
	assert.Equal(t, "eraser", ops[1].Tool)

	s.ClearDrawings()
	assert.Empty(t, s.Drawings())
	assert.Zero(t, s.Version(), "drawings do not touch the content version")
}

func TestSync_ContentVersion(t *testing.T) {
	tests := map[string]struct {
		apply   func(s *whiteboard.Sync)
		version uint64
		content map[string]json.RawMessage
	}{
		"replace": {
			apply: func(s *whiteboard.Sync) {
				s.ReplaceContent(map[string]json.RawMessage{"title": json.RawMessage(`"Intro"`)})
			},
			version: 1,
			content: map[string]json.RawMessage{"title": json.RawMessage(`"Intro"`)},
		},
		"replace then patch": {
			apply: func(s *whiteboard.Sync) {
				s.ReplaceContent(map[string]json.RawMessage{"title": json.RawMessage(`"Intro"`), "body": json.RawMessage(`"x"`)})
				s.PatchContent(map[string]json.RawMessage{"body": json.RawMessage(`"y"`), "notes": json.RawMessage(`[1]`)})
			},
			version: 2,
			content: map[string]json.RawMessage{
				"title": json.RawMessage(`"Intro"`),
				"body":  json.RawMessage(`"y"`),
				"notes": json.RawMessage(`[1]`),
			},
		},
		"patch with null removes the key": {
			apply: func(s *whiteboard.Sync) {
				s.PatchContent(map[string]json.RawMessage{"a": json.RawMessage(`1`)})
				s.PatchContent(map[string]json.RawMessage{"a": json.RawMessage(`null`)})
			},
			version: 2,
			content: map[string]json.RawMessage{},
		},
		"empty replace still bumps the version": {
			apply: func(s *whiteboard.Sync) {
				s.ReplaceContent(nil)
				s.ReplaceContent(nil)
			},
			version: 2,
			content: map[string]json.RawMessage{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := whiteboard.NewSync(nil)
			tt.apply(s)

			assert.Equal(t, tt.version, s.Version())
			assert.Equal(t, tt.content, s.Content())
		})
	}
}

func TestSync_ContentIsACopy(t *testing.T) {
	s := whiteboard.NewSync(nil)
	in := map[string]json.RawMessage{"a": json.RawMessage(`1`)}
	s.ReplaceContent(in)

	in["b"] = json.RawMessage(`2`)
	out := s.Content()
	out["c"] = json.RawMessage(`3`)

	assert.Equal(t, map[string]json.RawMessage{"a": json.RawMessage(`1`)}, s.Content())
}
