package metrics

import (
	"reflect"
	"testing"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"host=localhost", map[string]string{"host": "localhost"}},
		{"host=localhost,region=eu", map[string]string{"host": "localhost", "region": "eu"}},
		{"host=localhost,,bad,a=b=c", map[string]string{"host": "localhost"}},
	}
	for _, tt := range tests {
		if have := SplitTags(tt.in); !reflect.DeepEqual(have, tt.want) {
			t.Errorf("SplitTags(%q) = %v, want %v", tt.in, have, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.EnableInfluxDB, cfg.EnableInfluxDBV2 = true, true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected conflicting reporters to be rejected")
	}
}
