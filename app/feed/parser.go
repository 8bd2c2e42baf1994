package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*ParsedFeed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	result := &ParsedFeed{
		Metadata: Metadata{
			Title:       parsed.Title,
			Link:        parsed.Link,
			Description: parsed.Description,
		},
		Items: make([]Item, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		normalized := p.normalizeItem(item)
		normalized.Fingerprint = Fingerprint(normalized)
		result.Items = append(result.Items, normalized)
	}

	return result, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     cmp.Or(item.Content, item.Description),
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = item.PublishedParsed
	}

	if item.Author != nil {
		normalized.Author = item.Author.Name
	}

	if len(item.Authors) > 0 && normalized.Author == "" {
		normalized.Author = item.Authors[0].Name
	}

	if item.Categories != nil {
		normalized.Categories = item.Categories
	}

	return normalized
}

// Fingerprint computes the content hash used as a dedup fallback when
// no GUID exists. FNV-1a is order-sensitive and cheap; collisions are
// tolerable since this is a hint, not a security boundary.
func Fingerprint(item Item) string {
	h := fnv.New64a()
	h.Write([]byte(item.Title))
	h.Write([]byte("|"))
	h.Write([]byte(item.Content))
	h.Write([]byte("|"))
	h.Write([]byte(item.Link))
	return strconv.FormatUint(h.Sum64(), 16)
}
