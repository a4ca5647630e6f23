package notifier_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zuzpack/zuz/pkg/notifier"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recorder) send(title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, title+" | "+message)
	return r.err
}

func TestNotifier_BuildSuccess(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{250 * time.Millisecond, "✅ Build Succeeded | @zuz/lib: 3 entry points built in 250ms"},
		{1500 * time.Millisecond, "✅ Build Succeeded | @zuz/lib: 3 entry points built in 1.5s"},
		{125 * time.Second, "✅ Build Succeeded | @zuz/lib: 3 entry points built in 2m5s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.duration.String(), func(t *testing.T) {
			rec := &recorder{}
			n := notifier.New(notifier.Config{Enabled: true, Send: rec.send}, nil)

			n.NotifyBuildSuccess("@zuz/lib", 3, tt.duration)

			if len(rec.messages) != 1 || rec.messages[0] != tt.want {
				t.Errorf("got %q, want %q", rec.messages, tt.want)
			}
		})
	}
}

func TestNotifier_BuildFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"single line", fmt.Errorf("dependency cycle: a -> b -> a"), "❌ Build Failed | @zuz/lib: dependency cycle: a -> b -> a"},
		{"multi line", errors.New("compilation failed\nsrc/a.ts:1:1: bad"), "❌ Build Failed | @zuz/lib: compilation failed"},
		{"nil", nil, "❌ Build Failed | @zuz/lib: unknown error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			n := notifier.New(notifier.Config{Enabled: true, Send: rec.send}, nil)

			n.NotifyBuildFailure("@zuz/lib", tt.err)

			if len(rec.messages) != 1 || rec.messages[0] != tt.want {
				t.Errorf("got %q, want %q", rec.messages, tt.want)
			}
		})
	}
}

func TestNotifier_Disabled(t *testing.T) {
	rec := &recorder{}
	n := notifier.New(notifier.Config{Enabled: false, Send: rec.send}, nil)

	n.NotifyBuildSuccess("@zuz/lib", 1, time.Second)
	n.NotifyBuildFailure("@zuz/lib", errors.New("boom"))

	if len(rec.messages) != 0 {
		t.Errorf("disabled notifier sent %q", rec.messages)
	}
}

func TestNotifier_SendErrorIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("no notification daemon")}
	n := notifier.New(notifier.Config{Enabled: true, Send: rec.send}, nil)

	n.NotifyBuildFailure("@zuz/lib", errors.New("boom"))

	if len(rec.messages) != 1 {
		t.Errorf("expected one attempt, got %d", len(rec.messages))
	}
}

func TestNotifier_ConcurrentNotifications(t *testing.T) {
	rec := &recorder{}
	n := notifier.New(notifier.Config{Enabled: true, Send: rec.send}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			n.NotifyBuildSuccess(fmt.Sprintf("lib-%d", idx), 1, time.Second)
		}(i)
	}
	wg.Wait()

	if len(rec.messages) != 5 {
		t.Errorf("expected 5 notifications, got %d", len(rec.messages))
	}
}
