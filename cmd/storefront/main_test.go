package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupLogger_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	closeLog, err := setupLogger("debug", "", &buf)
	if err != nil {
		t.Fatalf("setupLogger failed: %v", err)
	}
	defer closeLog()

	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	log.WithField("order_id", "o-1").Debug("debug line")
	if !strings.Contains(buf.String(), "order_id=o-1") {
		t.Fatalf("expected structured field in output, got %q", buf.String())
	}
}

func TestSetupLogger_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.log")

	var buf bytes.Buffer
	closeLog, err := setupLogger("info", path, &buf)
	if err != nil {
		t.Fatalf("setupLogger failed: %v", err)
	}
	log.Info("rotated file line")
	closeLog()
	log.SetOutput(os.Stderr)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "rotated file line") {
		t.Fatalf("expected message in log file, got %q", string(data))
	}
	if !strings.Contains(buf.String(), "rotated file line") {
		t.Fatal("expected message duplicated to stderr writer")
	}
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	if _, err := setupLogger("loud", "", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	err := run([]string{"--storage-driver=sqlite"})
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected config error, got %v", err)
	}
}
