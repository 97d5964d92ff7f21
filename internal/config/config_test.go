package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	want := Options{Target: X86_64SysV, MaxErrors: 20}
	if diff := cmp.Diff(want, Default()); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReader(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want Options
	}{
		{
			name: "empty file keeps defaults",
			toml: "",
			want: Default(),
		},
		{
			name: "overrides max_errors only",
			toml: "max_errors = 5\n",
			want: Options{Target: X86_64SysV, MaxErrors: 5},
		},
		{
			name: "warnings_as_errors set",
			toml: "warnings_as_errors = true\n",
			want: Options{Target: X86_64SysV, MaxErrors: 20, WarningsAsErrors: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadReader(strings.NewReader(tt.toml))
			if err != nil {
				t.Fatalf("LoadReader() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LoadReader() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadReaderBadTOML(t *testing.T) {
	_, err := LoadReader(strings.NewReader("max_errors = ["))
	if err == nil {
		t.Fatal("LoadReader() with malformed TOML: expected error, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/cc99.toml")
	if err == nil {
		t.Fatal("Load() with missing file: expected error, got nil")
	}
}
