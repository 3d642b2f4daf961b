package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-counselor/internal/model"
)

type recordingSink struct {
	events []model.SessionEvent
}

func (r *recordingSink) Publish(event model.SessionEvent) error {
	r.events = append(r.events, event)
	return nil
}

func TestSessionEventWorkerHandle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantCount int
	}{
		{name: "valid", body: `{"type":"session.created","user_id":3,"session_id":9,"title":"New Career Discussion"}`, wantCount: 1},
		{name: "malformed", body: `{"type":`, wantErr: true},
		{name: "missing user", body: `{"type":"session.created","session_id":9}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			w := NewSessionEventWorker(nil, "chat.session.events", sink, nil)

			err := w.handle([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, sink.events, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, uint(9), sink.events[0].SessionID)
			}
		})
	}
}
