package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stagehand-io/stagehand/internal/timing"
)

// ReadEvents loads the persisted time-event mapping for a scene key.
// An unknown key returns an empty mapping, not an error: a scene that
// has never been cached simply starts fresh.
func (s *Store) ReadEvents(ctx context.Context, key string) (map[string]timing.Event, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT events FROM timelines WHERE key = ?`, key,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]timing.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read events %q: %w", key, err)
	}

	events, err := unmarshalEvents(doc)
	if err != nil {
		return nil, fmt.Errorf("read events %q: %w", key, err)
	}
	return events, nil
}

// WriteEvents replaces the persisted mapping for a scene key.
// The whole document is swapped atomically; partial timelines are never
// visible to readers.
func (s *Store) WriteEvents(ctx context.Context, key string, events map[string]timing.Event) error {
	doc, err := marshalEvents(events)
	if err != nil {
		return fmt.Errorf("write events %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO timelines (key, events)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			events = excluded.events,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, key, doc)
	if err != nil {
		return fmt.Errorf("write events %q: %w", key, err)
	}
	return nil
}

// ReadScene loads the mapping for a scene by project and scene name.
// This is the surface the scene driver consumes.
func (s *Store) ReadScene(ctx context.Context, project, scene string) (map[string]timing.Event, error) {
	return s.ReadEvents(ctx, Key(project, scene))
}

// WriteScene replaces the mapping for a scene by project and scene name.
func (s *Store) WriteScene(ctx context.Context, project, scene string, events map[string]timing.Event) error {
	return s.WriteEvents(ctx, Key(project, scene), events)
}

// Keys lists all stored timeline keys, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM timelines ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// marshalEvents serializes the mapping as a JSON object with sorted keys
// and no HTML escaping, so the stored document is deterministic and
// diffable across sessions.
func marshalEvents(events map[string]timing.Event) (string, error) {
	names := make([]string, 0, len(events))
	for name := range events {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(name)
		if err != nil {
			return "", err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		if err := enc.Encode(events[name]); err != nil {
			return "", err
		}
		// Encoder adds a trailing newline, remove it
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func unmarshalEvents(doc string) (map[string]timing.Event, error) {
	if strings.TrimSpace(doc) == "" {
		return map[string]timing.Event{}, nil
	}
	events := make(map[string]timing.Event)
	if err := json.Unmarshal([]byte(doc), &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}
