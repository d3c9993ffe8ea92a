package terminal

import "testing"

func TestColorsHonorNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	for name, fn := range map[string]func() string{
		"red": Red, "green": Green, "yellow": Yellow, "gray": Gray, "bold": Bold, "reset": Reset,
	} {
		if got := fn(); got != "" {
			t.Errorf("%s: expected no escape code with NO_COLOR, got %q", name, got)
		}
	}
	if got := Paint(Red(), "failed"); got != "failed" {
		t.Errorf("Paint without colors = %q, want plain text", got)
	}
}

func TestColorsEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	if !Enabled() {
		t.Fatal("colors should be enabled")
	}
	if got := Paint(Green(), "ok"); got != "\033[32mok\033[0m" {
		t.Errorf("Paint = %q", got)
	}
}
