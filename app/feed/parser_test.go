package feed

import "testing"

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <link>https://example.com</link>
    <description>An example feed</description>
    <item>
      <guid>guid-1</guid>
      <title>First Post</title>
      <link>https://example.com/first</link>
      <description>Summary of the first post</description>
      <category>go</category>
      <category>release</category>
    </item>
    <item>
      <title>Second Post</title>
      <link>https://example.com/second</link>
      <description>Summary of the second post</description>
    </item>
  </channel>
</rss>`

func TestParserRun(t *testing.T) {
	parser := NewParser()

	parsed, err := parser.Run([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if parsed.Metadata.Title != "Example Feed" {
		t.Errorf("Metadata.Title = %q, want %q", parsed.Metadata.Title, "Example Feed")
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(parsed.Items))
	}

	first := parsed.Items[0]
	if first.GUID != "guid-1" {
		t.Errorf("first.GUID = %q, want %q", first.GUID, "guid-1")
	}
	if first.Content != first.Description {
		t.Errorf("first.Content = %q, want description fallback %q", first.Content, first.Description)
	}
	if len(first.Categories) != 2 {
		t.Errorf("len(first.Categories) = %d, want 2", len(first.Categories))
	}

	// No GUID in the source stays empty; the fingerprint covers dedup.
	second := parsed.Items[1]
	if second.GUID != "" {
		t.Errorf("second.GUID = %q, want empty", second.GUID)
	}

	for i, item := range parsed.Items {
		if item.Fingerprint == "" {
			t.Errorf("item %d has empty fingerprint", i)
		}
	}
	if parsed.Items[0].Fingerprint == parsed.Items[1].Fingerprint {
		t.Error("distinct items produced the same fingerprint")
	}
}

func TestParserRunInvalid(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Run([]byte("not a feed")); err == nil {
		t.Error("Run() on garbage input, want error")
	}
}

func TestFingerprint(t *testing.T) {
	base := Item{Title: "Title", Content: "Content", Link: "https://example.com/a"}

	if got, again := Fingerprint(base), Fingerprint(base); got != again {
		t.Errorf("Fingerprint not deterministic: %q != %q", got, again)
	}

	tests := []struct {
		name string
		item Item
	}{
		{"different title", Item{Title: "Other", Content: "Content", Link: "https://example.com/a"}},
		{"different content", Item{Title: "Title", Content: "Other", Link: "https://example.com/a"}},
		{"different link", Item{Title: "Title", Content: "Content", Link: "https://example.com/b"}},
		{"field boundary shift", Item{Title: "Title|Content", Content: "", Link: "https://example.com/a"}},
	}

	baseFP := Fingerprint(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(tt.item) == baseFP {
				t.Error("fingerprint collision for distinct item")
			}
		})
	}

	// GUID and description do not participate in the hash.
	withGUID := base
	withGUID.GUID = "some-guid"
	withGUID.Description = "different description"
	if Fingerprint(withGUID) != baseFP {
		t.Error("fingerprint changed on non-hashed fields")
	}
}
