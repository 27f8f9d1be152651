package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/camlink/camlink-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.clog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func ch(n uint8) *uint8 { return &n }

// appendPartial appends all but the last bytes of event to the log, as a
// writer killed mid-record leaves it.
func appendPartial(t *testing.T, path string, event log.Event) {
	t.Helper()
	data, err := log.EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(data[:len(data)-3]); err != nil {
		t.Fatalf("append: %v", err)
	}
}
