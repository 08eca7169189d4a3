package project

import "testing"

func TestNormalizeModulePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "plain", path: "a/b", want: "a/b"},
		{name: "source extension", path: "a/b.em", want: "a/b"},
		{name: "unit extension", path: "a/b.emt", want: "a/b"},
		{name: "backslashes", path: "a\\b", want: "a/b"},
		{name: "leading slash", path: "/a/b", want: "a/b"},
		{name: "empty", path: "", wantErr: true},
		{name: "empty segment", path: "a//b", wantErr: true},
		{name: "dot segment", path: "a/./b", wantErr: true},
		{name: "parent segment", path: "a/../b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeModulePath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeModulePath returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("NormalizeModulePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveImportPath(t *testing.T) {
	tests := []struct {
		name       string
		modulePath string
		segments   []string
		want       string
		wantErr    bool
	}{
		{
			name:       "root absolute",
			modulePath: "core/main",
			segments:   []string{"std", "io"},
			want:       "std/io",
		},
		{
			name:       "relative same dir",
			modulePath: "core/main",
			segments:   []string{".", "util"},
			want:       "core/util",
		},
		{
			name:       "relative parent",
			modulePath: "included/d",
			segments:   []string{"..", "a"},
			want:       "a",
		},
		{
			name:       "multiple parent",
			modulePath: "a/b/c",
			segments:   []string{"..", "..", "d"},
			want:       "d",
		},
		{
			name:       "escape root",
			modulePath: "a",
			segments:   []string{"..", "b"},
			wantErr:    true,
		},
		{
			name:     "empty",
			segments: nil,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveImportPath(tt.modulePath, tt.segments)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveImportPath returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveImportPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsValidModuleIdent(t *testing.T) {
	valid := []string{"main", "_private", "mod2", "snake_case"}
	for _, name := range valid {
		if !IsValidModuleIdent(name) {
			t.Fatalf("expected %q to be valid", name)
		}
	}
	invalid := []string{"", "2start", "dash-name", "unicodé"}
	for _, name := range invalid {
		if IsValidModuleIdent(name) {
			t.Fatalf("expected %q to be invalid", name)
		}
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	var content, depA, depB Digest
	content[0] = 1
	depA[0] = 2
	depB[0] = 3

	ab := Combine(content, depA, depB)
	ba := Combine(content, depB, depA)
	if ab == ba {
		t.Fatalf("expected dependency order to change the digest")
	}
	if again := Combine(content, depA, depB); again != ab {
		t.Fatalf("expected Combine to be deterministic")
	}
}
