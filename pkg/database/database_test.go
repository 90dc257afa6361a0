package database

import "testing"

func TestShouldMigrate(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		force bool
		want  bool
	}{
		{"debug mode migrates by default", "debug", false, true},
		{"test mode migrates by default", "test", false, true},
		{"release mode skips migration", "release", false, false},
		{"release mode with force flag migrates", "release", true, true},
		{"debug mode with force flag migrates", "debug", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldMigrate(tt.mode, tt.force); got != tt.want {
				t.Fatalf("shouldMigrate(%q, %v) = %v, want %v", tt.mode, tt.force, got, tt.want)
			}
		})
	}
}
