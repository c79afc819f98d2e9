package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
)

func TestProgressModel_Loading(t *testing.T) {
	model := NewProgressModel()
	if !model.Animating() {
		t.Fatal("expected a new progress model to animate")
	}

	model, _ = model.Update(ProgressMsg{Stage: "Loading contacts"})
	if view := model.View(); !strings.Contains(view, "Loading contacts...") {
		t.Errorf("expected view to contain the stage, got: %s", view)
	}

	if _, cmd := model.Update(spinner.TickMsg{}); cmd == nil {
		t.Error("expected the spinner to schedule its next frame")
	}
}

func TestProgressModel_Complete(t *testing.T) {
	model := NewProgressModel()
	model, _ = model.Update(ProgressMsg{Stage: StageComplete})

	if model.Animating() {
		t.Error("expected the spinner to stop once loading completed")
	}
	if view := model.View(); !strings.Contains(view, "No contacts yet") {
		t.Errorf("expected the empty-collection hint, got: %s", view)
	}
}

func TestProgressModel_Error(t *testing.T) {
	model := NewProgressModel()
	model, _ = model.Update(ProgressMsg{Stage: "Loading contacts", Err: errors.New("status 503")})

	view := model.View()
	if !strings.Contains(view, "status 503") || !strings.Contains(view, "(r) to retry") {
		t.Errorf("expected view to contain the error and retry hint, got: %s", view)
	}
	if _, cmd := model.Update(spinner.TickMsg{}); cmd != nil {
		t.Error("expected no further tick after an error")
	}

	// a retry restarts the animation
	model, _ = model.Update(ProgressMsg{Stage: "Loading contacts"})
	if !model.Animating() {
		t.Error("expected a new load to clear the error")
	}
}
