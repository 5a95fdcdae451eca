package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Stage", KeyStage, "plan", Stage("plan")},
		{"NodeID", KeyNodeID, "n1", NodeID("n1")},
		{"Slug", KeySlug, "/post", Slug("/post")},
		{"Category", KeyCategory, "blog", Category("blog")},
		{"Source", KeySource, "workshops", Source("workshops")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"File", KeyFile, "post.md", File("post.md")},
		{"JobName", KeyJobName, "rebuild", JobName("rebuild")},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestIntHelpers(t *testing.T) {
	if a := Pages(9); a.Key != KeyPages || a.Value.Int64() != 9 {
		t.Fatalf("unexpected pages attr %v", a)
	}
	if a := Redirects(2); a.Key != KeyRedirects || a.Value.Int64() != 2 {
		t.Fatalf("unexpected redirects attr %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr %v", a)
	}
}
