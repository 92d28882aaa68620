package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain text", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocumentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status DocumentStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusReady, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to ready", StatusPending, StatusReady, false},
		{"processing to ready", StatusProcessing, StatusReady, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to pending", StatusProcessing, StatusPending, false},
		{"failed to processing", StatusFailed, StatusProcessing, true},
		{"failed to ready", StatusFailed, StatusReady, false},
		{"ready to processing", StatusReady, StatusProcessing, false},
		{"ready to failed", StatusReady, StatusFailed, false},
		{"unknown status", DocumentStatus("archived"), StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDocument_Locators(t *testing.T) {
	local := &Document{StoragePath: "/data/uploads/a.txt"}
	if !local.HasLocalContent() || local.HasRemoteLocator() {
		t.Errorf("local document locators misreported")
	}

	remote := &Document{URL: "https://example.com/a"}
	if remote.HasLocalContent() || !remote.HasRemoteLocator() {
		t.Errorf("remote document locators misreported")
	}

	bare := &Document{}
	if bare.HasLocalContent() || bare.HasRemoteLocator() {
		t.Errorf("document without locators misreported")
	}
}
