package styles

import (
	"strings"
	"testing"
)

func TestStylesAreDefined(t *testing.T) {
	tests := []struct {
		name  string
		style string
	}{
		{"Title", Title.Render("test")},
		{"ErrorText", ErrorText.Render("test")},
		{"SuccessText", SuccessText.Render("test")},
		{"WarningText", WarningText.Render("test")},
		{"MutedText", MutedText.Render("test")},
		{"HelpText", HelpText.Render("test")},
		{"DiffAdded", DiffAdded.Render("test")},
		{"DiffRemoved", DiffRemoved.Render("test")},
		{"DiffHeader", DiffHeader.Render("test")},
		{"TableHeader", TableHeader.Render("test")},
		{"TableCell", TableCell.Render("test")},
		{"Container", Container.Render("test")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.style, "test") {
				t.Errorf("%s style should render its content", tt.name)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	for _, ok := range []bool{true, false} {
		if got := Status("exit-code", ok); !strings.Contains(got, "exit-code") {
			t.Errorf("Status(%v) = %q, want it to contain the text", ok, got)
		}
	}
}
