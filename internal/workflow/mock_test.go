package workflow

import (
	"context"
	"sync"

	"github.com/alexander-akhmetov/wbstrack/internal/event"
)

type notifyCall struct {
	Targets []string
	Kind    event.Kind
	Payload map[string]any
}

// recordingNotifier records every call. NotifyFunc, when set, decides the
// returned error.
type recordingNotifier struct {
	mu         sync.Mutex
	Calls      []notifyCall
	NotifyFunc func(kind event.Kind) error
}

func (n *recordingNotifier) Notify(_ context.Context, targets []string, kind event.Kind, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, notifyCall{Targets: targets, Kind: kind, Payload: payload})
	if n.NotifyFunc != nil {
		return n.NotifyFunc(kind)
	}
	return nil
}

func (n *recordingNotifier) kinds() []event.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]event.Kind, 0, len(n.Calls))
	for _, c := range n.Calls {
		out = append(out, c.Kind)
	}
	return out
}

func (n *recordingNotifier) byKind(kind event.Kind) []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyCall
	for _, c := range n.Calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type awardCall struct {
	UserIDs []string
	Points  int
	Reason  string
}

type recordingRewarder struct {
	mu        sync.Mutex
	Calls     []awardCall
	AwardFunc func() error
}

func (r *recordingRewarder) Award(_ context.Context, userIDs []string, points int, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, awardCall{UserIDs: userIDs, Points: points, Reason: reason})
	if r.AwardFunc != nil {
		return r.AwardFunc()
	}
	return nil
}

type recordingLog struct {
	mu     sync.Mutex
	Lines  []string
	Errors []string
}

func (l *recordingLog) Printf(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, format)
}

func (l *recordingLog) Errorf(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, format)
}
