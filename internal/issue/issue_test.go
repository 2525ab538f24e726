// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestEveryIdHasAnIssue(t *testing.T) {
	for id := DuplicateCommandId; id <= ServeFailedId; id++ {
		i := Get(id)
		if i == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if i.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, i.Id())
		}
		if strings.TrimSpace(string(i.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", id)
		}
	}

	if Get(0) != nil {
		t.Error("Get(0) should return nil")
	}
}

func TestValuesOrdered(t *testing.T) {
	values := Values()
	if len(values) != int(ServeFailedId) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), ServeFailedId)
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d", i, v.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	i := &Issue{id: DuplicateCommandId, docLinks: []HttpLink{"https://example.com/docs"}}

	links := i.DocLinks()
	links[0] = "modified"
	if i.DocLinks()[0] != "https://example.com/docs" {
		t.Error("DocLinks() should return a clone")
	}
	if i.ExtLinks() != nil {
		t.Error("ExtLinks() should be nil when unset")
	}
}

func TestIssue_Render(t *testing.T) {
	// Not parallel: swaps the package renderer.
	var gotMd, gotStyle string
	orig := render
	render = func(in, stylePath string) (string, error) {
		gotMd, gotStyle = in, stylePath
		return "rendered", nil
	}
	t.Cleanup(func() { render = orig })

	i := &Issue{
		id:       ServeFailedId,
		mdMsg:    "# Broken",
		extLinks: []HttpLink{"https://example.com/help"},
	}
	out, err := i.Render("notty")
	if err != nil || out != "rendered" {
		t.Fatalf("Render() = %q, %v", out, err)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q", gotStyle)
	}
	if !strings.Contains(gotMd, "# Broken") || !strings.Contains(gotMd, "<https://example.com/help>") {
		t.Errorf("markdown = %q", gotMd)
	}

	render = func(string, string) (string, error) { return "", errors.New("bad style") }
	if _, err := i.Render("nope"); err == nil {
		t.Error("expected render error")
	}
}

func TestIssue_RenderWithGlamour(t *testing.T) {
	out, err := Get(DuplicateCommandId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(out, "Two commands share a name") {
		t.Errorf("rendered output missing heading:\n%s", out)
	}
}
