package extract

import (
	"strings"
	"testing"
)

func TestCleanMarkup_RemoveScripts(t *testing.T) {
	in := `<div><script>alert(1)</script><p>keep</p></div>`
	out, err := cleanMarkup(in, HTMLOptions{RemoveScripts: true})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if strings.Contains(out, "script") {
		t.Errorf("script not removed: %q", out)
	}
	if !strings.Contains(out, "<p>keep</p>") {
		t.Errorf("content lost: %q", out)
	}
}

func TestCleanMarkup_RemoveComments(t *testing.T) {
	in := `<div><!-- secret --><p>keep</p></div>`
	out, err := cleanMarkup(in, HTMLOptions{RemoveComments: true})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("comment not removed: %q", out)
	}
}

func TestCleanMarkup_NormalizeWhitespace(t *testing.T) {
	in := "<p>a   lot\n\n\tof    space</p>"
	out, err := cleanMarkup(in, HTMLOptions{NormalizeWhitespace: true})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if !strings.Contains(out, "a lot of space") {
		t.Errorf("whitespace not normalised: %q", out)
	}
}

func TestCleanMarkup_CollapseBetweenTags(t *testing.T) {
	in := "<div>\n  <p>x</p>\n  <p>y</p>\n</div>"
	out, err := cleanMarkup(in, HTMLOptions{CleanHTML: true})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if strings.Contains(out, ">\n") || strings.Contains(out, "  <") {
		t.Errorf("inter-tag whitespace not collapsed: %q", out)
	}
}

func TestCleanMarkup_NoOptionsIsIdentity(t *testing.T) {
	in := `<div><p>unchanged</p></div>`
	out, err := cleanMarkup(in, HTMLOptions{})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if out != in {
		t.Errorf("no options should leave markup untouched:\n in  %q\n out %q", in, out)
	}
}

func TestCleanMarkup_NestedScripts(t *testing.T) {
	in := `<div><section><script src="x.js"></script><span>s</span></section></div>`
	out, err := cleanMarkup(in, HTMLOptions{RemoveScripts: true})
	if err != nil {
		t.Fatalf("cleanMarkup failed: %v", err)
	}
	if strings.Contains(out, "x.js") {
		t.Errorf("nested script not removed: %q", out)
	}
	if !strings.Contains(out, "<span>s</span>") {
		t.Errorf("sibling content lost: %q", out)
	}
}
