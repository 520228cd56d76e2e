// Package store implements the capture lifecycle over the generic kv
// contract. Records live under capture:{id}; each status has a
// time-scored index at captures:{status} holding ids newest-first.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/errors"
	"github.com/tendfield/garden/internal/kv"
)

// Store manages capture records and their status indexes.
type Store struct {
	kv  kv.Store
	now func() time.Time
}

// New creates a Store over the given kv backend.
func New(backend kv.Store) *Store {
	return &Store{kv: backend, now: time.Now}
}

// NewWithClock creates a Store with an injected clock, for tests.
func NewWithClock(backend kv.Store, now func() time.Time) *Store {
	return &Store{kv: backend, now: now}
}

func captureKey(id string) string {
	return "capture:" + id
}

func statusSetKey(status capture.Status) string {
	return "captures:" + string(status)
}

// generateID returns a new ULID string. The timestamp prefix keeps ids
// roughly chronological without coordination.
func (s *Store) generateID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), ulid.Monotonic(rand.Reader, 0)).String()
}

// CreateInput holds the fields of a new capture supplied by ingestion.
type CreateInput struct {
	Source             capture.Source
	Type               capture.ContentType
	URL                string
	Text               string
	Comment            string
	Images             []capture.Image
	Tags               []string
	Project            string
	InferredCollection capture.Collection
	InferredNoteType   capture.NoteType
}

// Create stores a new pending capture and indexes it.
func (s *Store) Create(ctx context.Context, in CreateInput) (*capture.Capture, error) {
	now := s.now()
	c := &capture.Capture{
		ID:                 s.generateID(),
		CreatedAt:          now.UTC().Format(time.RFC3339),
		Source:             in.Source,
		Type:               in.Type,
		URL:                in.URL,
		Text:               in.Text,
		Comment:            in.Comment,
		Images:             in.Images,
		Tags:               in.Tags,
		Project:            in.Project,
		Status:             capture.StatusPending,
		InferredCollection: in.InferredCollection,
		InferredNoteType:   in.InferredNoteType,
	}

	if err := s.put(ctx, c); err != nil {
		return nil, err
	}
	if err := s.kv.ZAdd(ctx, statusSetKey(capture.StatusPending), c.ID, now.UnixMilli()); err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// Get returns the capture with the given id, or a NOT_FOUND error.
func (s *Store) Get(ctx context.Context, id string) (*capture.Capture, error) {
	raw, ok, err := s.kv.Get(ctx, captureKey(id))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !ok {
		return nil, errors.NewNotFound(id)
	}

	var c capture.Capture
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("corrupt capture record %s: %w", id, err))
	}
	return &c, nil
}

// List returns captures in the given status, newest-first.
// Records missing from the kv (index ahead of record) are skipped.
func (s *Store) List(ctx context.Context, status capture.Status, limit, offset int) ([]*capture.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ids, err := s.kv.ZRevRange(ctx, statusSetKey(status), int64(offset), int64(offset+limit-1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	captures := make([]*capture.Capture, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, nil
}

// Count returns the number of captures in the given status.
func (s *Store) Count(ctx context.Context, status capture.Status) (int, error) {
	n, err := s.kv.ZCard(ctx, statusSetKey(status))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// Update applies the editable fields of a capture. Nil pointer fields
// and empty enum fields are left unchanged.
func (s *Store) Update(ctx context.Context, id string, in capture.UpdatePayload) (*capture.Capture, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Text != nil {
		c.Text = *in.Text
	}
	if in.Comment != nil {
		c.Comment = *in.Comment
	}
	if in.Tags != nil {
		c.Tags = in.Tags
	}
	if in.InferredCollection != "" {
		if !capture.ValidCollection(in.InferredCollection) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid collection: %s", in.InferredCollection))
		}
		c.InferredCollection = in.InferredCollection
	}
	if in.InferredNoteType != "" {
		if !capture.ValidNoteType(in.InferredNoteType) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid note type: %s", in.InferredNoteType))
		}
		c.InferredNoteType = in.InferredNoteType
	}
	if in.PublishUseRefined != nil {
		c.PublishUseRefined = in.PublishUseRefined
	}

	if err := s.put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Approve moves a pending capture to approved and records the publish
// preference.
func (s *Store) Approve(ctx context.Context, id string, useRefined *bool) (*capture.Capture, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != capture.StatusPending {
		return nil, errors.NewConflict(fmt.Sprintf("cannot approve capture in status %q", c.Status))
	}

	c.PublishUseRefined = useRefined
	return s.transition(ctx, c, capture.StatusApproved)
}

// Reject moves a pending capture to rejected.
func (s *Store) Reject(ctx context.Context, id string) (*capture.Capture, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != capture.StatusPending {
		return nil, errors.NewConflict(fmt.Sprintf("cannot reject capture in status %q", c.Status))
	}
	return s.transition(ctx, c, capture.StatusRejected)
}

// Restore moves a rejected capture back to pending.
func (s *Store) Restore(ctx context.Context, id string) (*capture.Capture, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != capture.StatusRejected {
		return nil, errors.NewConflict(fmt.Sprintf("cannot restore capture in status %q", c.Status))
	}
	return s.transition(ctx, c, capture.StatusPending)
}

// StoreRefinement attaches an AI refinement to a capture, overwriting
// any previous one. RefinedAt is stamped here.
func (s *Store) StoreRefinement(ctx context.Context, id string, refined capture.Refined) (*capture.Capture, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	refined.RefinedAt = s.now().UTC().Format(time.RFC3339)
	c.Refined = &refined

	if err := s.put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a capture record and its index membership.
func (s *Store) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.kv.ZRem(ctx, statusSetKey(c.Status), id); err != nil {
		return errors.NewInternal(err)
	}
	if err := s.kv.Del(ctx, captureKey(id)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Approved returns all captures queued for publishing.
func (s *Store) Approved(ctx context.Context) ([]*capture.Capture, error) {
	return s.List(ctx, capture.StatusApproved, 100, 0)
}

// PublishedInfo records the publish outcome for one capture.
type PublishedInfo struct {
	ID         string
	Slug       string
	Collection capture.Collection
}

// MarkPublished moves approved captures to published, recording each
// capture's resulting slug and collection. Captures no longer in
// approved status are skipped.
func (s *Store) MarkPublished(ctx context.Context, infos []PublishedInfo) error {
	for _, info := range infos {
		c, err := s.Get(ctx, info.ID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return err
		}
		if c.Status != capture.StatusApproved {
			continue
		}

		c.PublishedSlug = info.Slug
		c.PublishedCollection = info.Collection
		if _, err := s.transition(ctx, c, capture.StatusPublished); err != nil {
			return err
		}
	}
	return nil
}

// transition moves a capture between status indexes and persists it.
// Order matters: add to the new index, remove from the old, then write
// the record. A concurrent reader may briefly see the id in both
// indexes but never in neither.
func (s *Store) transition(ctx context.Context, c *capture.Capture, newStatus capture.Status) (*capture.Capture, error) {
	oldStatus := c.Status
	c.Status = newStatus

	if err := s.kv.ZAdd(ctx, statusSetKey(newStatus), c.ID, s.now().UnixMilli()); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := s.kv.ZRem(ctx, statusSetKey(oldStatus), c.ID); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := s.put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) put(ctx context.Context, c *capture.Capture) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := s.kv.Set(ctx, captureKey(c.ID), string(data)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
