package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(c *qt.C, content string) string {
	path := filepath.Join(c.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte(content), 0o644), qt.IsNil)
	return path
}

func TestLoad(t *testing.T) {
	c := qt.New(t)
	c.Setenv("SAMPLE_NAME", "lagu")

	tests := []struct {
		name    string
		content string
		start   sample
		want    sample
		wantErr string
	}{
		{
			name:    "env expansion",
			content: "name: ${SAMPLE_NAME}\nport: 80\n",
			want:    sample{Name: "lagu", Port: 80},
		},
		{
			name:    "defaults kept",
			content: "debug: true\n",
			start:   sample{Name: "default", Port: 8080},
			want:    sample{Name: "default", Port: 8080, Debug: true},
		},
		{
			name:    "empty file",
			content: "",
			start:   sample{Port: 1},
			want:    sample{Port: 1},
		},
		{
			name:    "unknown key",
			content: "port: 80\nprot: 81\n",
			wantErr: "(?s)failed to parse config file .*field prot not found.*",
		},
		{
			name:    "validation",
			content: "name: x\n",
			wantErr: "config validation failed: port is required",
		},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			got := tt.start
			err := Load(writeFile(c, tt.content), &got)
			if tt.wantErr != "" {
				c.Assert(err, qt.ErrorMatches, tt.wantErr)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, tt.want)
		})
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	c := qt.New(t)
	s := sample{Port: 9}
	c.Assert(LoadOptional(filepath.Join(c.TempDir(), "none.yaml"), &s), qt.IsNil)
	c.Assert(s, qt.Equals, sample{Port: 9})

	var empty sample
	c.Assert(LoadOptional(filepath.Join(c.TempDir(), "none.yaml"), &empty), qt.ErrorMatches, ".*port is required")
}

func TestLoadWithDefaults(t *testing.T) {
	c := qt.New(t)
	fallback := writeFile(c, "port: 7\n")

	var s sample
	c.Assert(LoadWithDefaults(filepath.Join(c.TempDir(), "missing.yaml"), fallback, &s), qt.IsNil)
	c.Assert(s.Port, qt.Equals, 7)

	c.Assert(LoadWithDefaults(filepath.Join(c.TempDir(), "missing.yaml"), "", &s), qt.ErrorMatches, "config file not found: .*")
}
