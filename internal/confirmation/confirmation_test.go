package confirmation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func newService(input string) (ConfirmationService, *bytes.Buffer) {
	var out bytes.Buffer
	return NewConfirmationService(strings.NewReader(input), &out, false), &out
}

func TestConfirm_Answers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty declines", "\n", false},
		{"retry after invalid", "maybe\ny\n", true},
		{"gives up after three invalid answers", "a\nb\nc\ny\n", false},
		{"answer without newline", "y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newService(tt.input)
			got, err := service.Confirm(context.Background(), Request{Action: "Import snapshot"}, false)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Confirm() = %t, want %t", got, tt.expected)
			}
		})
	}
}

func TestConfirm_Phrase(t *testing.T) {
	req := Request{Action: "Delete all data", Destructive: true, Phrase: "delete all"}

	service, out := newService("y\ndelete all\n")
	got, err := service.Confirm(context.Background(), req, false)
	if err != nil || !got {
		t.Fatalf("Expected phrase to confirm, got %t, %v", got, err)
	}
	if !strings.Contains(out.String(), "DESTRUCTIVE OPERATION") {
		t.Error("Expected destructive banner")
	}
	if !strings.Contains(out.String(), `Please type "delete all"`) {
		t.Error("Expected a hint after a wrong phrase")
	}
}

func TestConfirm_AutoApprove(t *testing.T) {
	service, out := newService("")
	got, err := service.Confirm(context.Background(), Request{Action: "Replace data", Details: []string{"13 collections are cleared"}}, true)
	if err != nil || !got {
		t.Fatalf("Expected auto-approve, got %t, %v", got, err)
	}
	if !strings.Contains(out.String(), "13 collections are cleared") {
		t.Error("Expected details to be shown before auto-approving")
	}
}

func TestConfirm_NoInput(t *testing.T) {
	service, _ := newService("")
	_, err := service.Confirm(context.Background(), Request{Action: "Import snapshot"}, false)
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", err)
	}
}

func TestConfirm_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader, release := newBlockingReader()
	t.Cleanup(release)
	var out bytes.Buffer
	service := NewConfirmationService(reader, &out, false)

	_, err := service.Confirm(ctx, Request{Action: "Import snapshot"}, false)
	if !errors.Is(err, ErrInterrupted) {
		t.Errorf("Expected ErrInterrupted, got %v", err)
	}
}

// blockingReader never returns until closed
type blockingReader struct{ done chan struct{} }

func newBlockingReader() (*blockingReader, func()) {
	r := &blockingReader{done: make(chan struct{})}
	return r, func() { close(r.done) }
}

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.done
	return 0, errors.New("closed")
}
