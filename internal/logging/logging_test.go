package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "quiet", verbose: false, wantDebug: false},
		{name: "verbose", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := New(&buf, tt.verbose)
			log.Debug().Msg("dbg")
			log.Info().Str("addr", "127.0.0.1:1080").Msg("listening")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			wantLines := 1
			if tt.wantDebug {
				wantLines = 2
			}
			if len(lines) != wantLines {
				t.Fatalf("got %d lines: %q", len(lines), buf.String())
			}

			// A bytes.Buffer is not a terminal, so output is JSON.
			var rec map[string]any
			if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
				t.Fatal(err)
			}
			if rec["level"] != "info" || rec["message"] != "listening" || rec["addr"] != "127.0.0.1:1080" {
				t.Fatalf("record=%v", rec)
			}
			if _, ok := rec["time"]; !ok {
				t.Fatal("missing timestamp")
			}
		})
	}
}
