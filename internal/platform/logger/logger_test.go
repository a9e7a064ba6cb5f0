package logger

import "testing"

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	in := []interface{}{"uri", "bolt://localhost:7687", "NEO4J_PASSWORD", "hunter2", "api_token", "abc", "dangling"}
	out := sanitizeKVs(in)
	if len(out) != len(in) {
		t.Fatalf("len: want=%d got=%d", len(in), len(out))
	}
	if out[1] != "bolt://localhost:7687" {
		t.Fatalf("uri: want passthrough got=%v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("odd trailing key: want=dangling got=%v", out[6])
	}
}

func TestSanitizeKVsLeavesInputUntouched(t *testing.T) {
	in := []interface{}{"secret", "s3cr3t"}
	_ = sanitizeKVs(in)
	if in[1] != "s3cr3t" {
		t.Fatalf("input mutated: got=%v", in[1])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"", "development", "production", "PROD"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Debug("mode check", "mode", mode)
	}
}
