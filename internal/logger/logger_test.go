package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("article ingested", "url", "https://example.com/blogs/a", "created", true)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["message"] != "article ingested" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
	if entry["url"] != "https://example.com/blogs/a" {
		t.Errorf("unexpected url field: %v", entry["url"])
	}
	if entry["created"] != true {
		t.Errorf("unexpected created field: %v", entry["created"])
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Error("fetch failed", errors.New("timeout"), "url", "https://x.example")

	if !strings.Contains(buf.String(), `"error":"timeout"`) {
		t.Errorf("expected error field in %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected error level in %s", buf.String())
	}
}
