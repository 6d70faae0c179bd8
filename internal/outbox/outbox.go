// Package outbox records notifications and rewards as JSON lines in a local
// file instead of delivering them. It implements both workflow.Notifier and
// workflow.RewardDispatcher; the CLI reads the file back with Read.
package outbox

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/alexander-akhmetov/wbstrack/internal/event"
)

// Entry types.
const (
	TypeNotification = "notification"
	TypeReward       = "reward"
)

// Entry is one recorded effect.
type Entry struct {
	ID      string
	Type    string
	Kind    event.Kind // notifications only
	Targets []string
	Points  int    // rewards only
	Reason  string // rewards only
	Payload map[string]any
	At      time.Time
}

// Outbox appends entries to a JSON lines file.
type Outbox struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
	newID func() string
}

// New returns an outbox writing to path. The parent directory is created.
func New(path string) (*Outbox, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("outbox path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create outbox dir: %w", err)
	}
	return &Outbox{path: path, clock: time.Now, newID: uuid.NewString}, nil
}

// Path returns the outbox file path.
func (o *Outbox) Path() string {
	return o.path
}

// Notify records a notification.
func (o *Outbox) Notify(ctx context.Context, targets []string, kind event.Kind, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := o.base(TypeNotification, targets)
	if err != nil {
		return err
	}
	if line, err = sjson.Set(line, "kind", string(kind)); err != nil {
		return fmt.Errorf("encode kind: %w", err)
	}
	if len(payload) > 0 {
		if line, err = sjson.Set(line, "payload", payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}
	return o.append(line)
}

// Award records a reward.
func (o *Outbox) Award(ctx context.Context, userIDs []string, points int, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := o.base(TypeReward, userIDs)
	if err != nil {
		return err
	}
	if line, err = sjson.Set(line, "points", points); err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	if line, err = sjson.Set(line, "reason", reason); err != nil {
		return fmt.Errorf("encode reason: %w", err)
	}
	return o.append(line)
}

func (o *Outbox) base(typ string, targets []string) (string, error) {
	if targets == nil {
		targets = []string{}
	}
	line := "{}"
	var err error
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"id", o.newID()},
		{"type", typ},
		{"at", o.clock().UTC().Format(time.RFC3339Nano)},
		{"targets", targets},
	} {
		if line, err = sjson.Set(line, kv.path, kv.value); err != nil {
			return "", fmt.Errorf("encode %s: %w", kv.path, err)
		}
	}
	return line, nil
}

func (o *Outbox) append(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write outbox: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close outbox: %w", err)
	}
	return nil
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	User string
	Kind event.Kind
	Type string
}

func (f Filter) match(r gjson.Result) bool {
	if f.Type != "" && r.Get("type").String() != f.Type {
		return false
	}
	if f.Kind != "" && r.Get("kind").String() != string(f.Kind) {
		return false
	}
	if f.User != "" {
		found := false
		r.Get("targets").ForEach(func(_, v gjson.Result) bool {
			if v.String() == f.User {
				found = true
				return false
			}
			return true
		})
		if !found {
			return false
		}
	}
	return true
}

// Read returns the entries of the outbox at path that match f, oldest first.
// A missing file yields no entries. Malformed lines are skipped.
func Read(path string, f Filter) ([]Entry, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	defer file.Close()

	var out []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !gjson.Valid(line) {
			continue
		}
		r := gjson.Parse(line)
		if !f.match(r) {
			continue
		}
		out = append(out, decode(r))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}
	return out, nil
}

func decode(r gjson.Result) Entry {
	e := Entry{
		ID:     r.Get("id").String(),
		Type:   r.Get("type").String(),
		Kind:   event.Kind(r.Get("kind").String()),
		Points: int(r.Get("points").Int()),
		Reason: r.Get("reason").String(),
	}
	for _, t := range r.Get("targets").Array() {
		e.Targets = append(e.Targets, t.String())
	}
	if at, err := time.Parse(time.RFC3339Nano, r.Get("at").String()); err == nil {
		e.At = at
	}
	if m, ok := r.Get("payload").Value().(map[string]any); ok {
		e.Payload = m
	}
	return e
}
