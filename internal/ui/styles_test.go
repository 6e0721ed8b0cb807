package ui

import (
	"strings"
	"testing"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

func TestRenderKind(t *testing.T) {
	t.Cleanup(func() { noColor = false })

	for kind, code := range map[model.NotificationKind]string{
		model.KindSuccess: "114",
		model.KindWarning: "179",
		model.KindError:   "203",
	} {
		got := RenderKind(kind, "msg")
		if !strings.Contains(got, "38;5;"+code+"m") || !strings.HasSuffix(got, "msg\x1b[0m") {
			t.Errorf("RenderKind(%s) = %q", kind, got)
		}
	}
	if got := RenderKind("other", "msg"); got != "msg" {
		t.Errorf("unknown kind should be plain, got %q", got)
	}

	ForceNoColor()
	if got := RenderKind(model.KindError, "msg"); got != "msg" {
		t.Errorf("ForceNoColor: got %q", got)
	}
	if got := RenderAccent("a"); got != "a" {
		t.Errorf("ForceNoColor accent: got %q", got)
	}
}

func TestShouldUseColor_Env(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if ShouldUseColor() {
		t.Error("NO_COLOR set: expected false")
	}
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	if !ShouldUseColor() {
		t.Error("CLICOLOR_FORCE=1: expected true")
	}
	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	if ShouldUseColor() {
		t.Error("CLICOLOR=0: expected false")
	}
	t.Setenv("CLICOLOR", "")
	if ColorEnabled(&strings.Builder{}) {
		t.Error("non-file writer: expected false")
	}
}
