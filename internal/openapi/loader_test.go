package openapi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
openapi: 3.0.3
info:
  title: loader test
  version: "1.0"
servers:
  - url: https://api.example.com/v1
paths: {}
`

const minimalJSON = `{
  "openapi": "3.0.3",
  "info": {"title": "loader test", "version": "1.0"},
  "paths": {}
}`

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadByExtension(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"yaml", "spec.yaml", minimalYAML, ""},
		{"yml", "spec.yml", minimalYAML, ""},
		{"json", "spec.json", minimalJSON, ""},
		{"json with yaml content", "spec.json", minimalYAML, "not valid JSON"},
		{"no extension json", "spec", minimalJSON, ""},
		{"no extension yaml fallback", "spec", minimalYAML, ""},
		{"unsupported extension", "spec.txt", minimalYAML, "unsupported spec file format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSpec(t, tt.file, tt.content)
			doc, err := Load(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if doc.Model == nil {
				t.Fatal("nil model")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRejectsSwagger2(t *testing.T) {
	src := `{"swagger": "2.0", "info": {"title": "old", "version": "1"}, "paths": {}}`
	_, err := Parse([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "unsupported OpenAPI version") {
		t.Fatalf("err = %v, want unsupported version", err)
	}
}

func TestBaseURL(t *testing.T) {
	doc := mustParse(t, minimalYAML)

	url, err := doc.BaseURL("")
	if err != nil || url != "https://api.example.com/v1" {
		t.Errorf("got (%q, %v), want first server", url, err)
	}

	url, err = doc.BaseURL("http://localhost:8080")
	if err != nil || url != "http://localhost:8080" {
		t.Errorf("override: got (%q, %v)", url, err)
	}

	noServers := mustParse(t, strings.ReplaceAll(minimalYAML, "servers:\n  - url: https://api.example.com/v1\n", ""))
	if _, err := noServers.BaseURL(""); err == nil {
		t.Error("expected error when no servers declared")
	}
}
