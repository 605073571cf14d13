package openai

import (
	"context"
	"testing"

	"github.com/pathakanu/myAlarm/internal/model"
	"github.com/pathakanu/myAlarm/internal/notify"
)

func TestFormatDueMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		evt  notify.DueEvent
		want string
	}{
		{
			name: "time only",
			evt:  notify.DueEvent{Time: "2024-01-01 00:00:00"},
			want: "Alarm 2024-01-01 00:00:00",
		},
		{
			name: "note and links",
			evt: notify.DueEvent{
				Time: "2024-01-01 00:00:00",
				Note: "standup",
				Links: []model.Link{
					{Title: "Board", URL: "http://board"},
					{URL: "http://call"},
				},
			},
			want: "Alarm 2024-01-01 00:00:00: standup\nBoard: http://board\n(untitled): http://call",
		},
	}

	for _, tc := range cases {
		if got := FormatDueMessage(tc.evt); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestComposeDueMessageFallback(t *testing.T) {
	t.Parallel()
	client := New("")
	if client.Enabled() {
		t.Fatalf("client without key must be disabled")
	}

	evt := notify.DueEvent{Time: "2024-01-01 00:00:00", Note: "pay rent"}
	msg, err := client.ComposeDueMessage(context.Background(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != FormatDueMessage(evt) {
		t.Fatalf("expected plain fallback, got %q", msg)
	}
}
