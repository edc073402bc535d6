package publish

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"curator/types"
)

// Notion pages cap each rich text block at 2000 characters.
const notionBlockLimit = 2000

// NotionPublisher creates one page per item in a Notion database. The
// database needs a Name title property plus URL, Source, Score and Tags
// properties matching the ones written here.
type NotionPublisher struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

func NewNotionPublisher(token, databaseID string) *NotionPublisher {
	return &NotionPublisher{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

func (n *NotionPublisher) Name() string { return "notion" }

func (n *NotionPublisher) Publish(ctx context.Context, item *types.CollectedItem, score float64) error {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(item.Title),
		},
		"Source": notionapi.RichTextProperty{
			RichText: richText(item.SourceName),
		},
		"Score": notionapi.NumberProperty{
			Number: score,
		},
	}
	if item.URL != "" {
		props["URL"] = notionapi.URLProperty{URL: item.URL}
	}
	if len(item.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(item.Tags))
		for _, tag := range item.Tags {
			opts = append(opts, notionapi.Option{Name: tag})
		}
		props["Tags"] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}

	body := item.Summary
	if body == "" {
		body = item.Content
	}

	_, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: n.databaseID,
		},
		Properties: props,
		Children:   paragraphBlocks(body),
	})
	if err != nil {
		return fmt.Errorf("notion page create: %w", err)
	}
	return nil
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: s}},
	}
}

// paragraphBlocks splits text into paragraph blocks under Notion's per-block
// character limit.
func paragraphBlocks(text string) []notionapi.Block {
	if text == "" {
		return nil
	}
	var blocks []notionapi.Block
	runes := []rune(text)
	for len(runes) > 0 {
		n := len(runes)
		if n > notionBlockLimit {
			n = notionBlockLimit
		}
		chunk := string(runes[:n])
		runes = runes[n:]
		blocks = append(blocks, &notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{
				RichText: richText(chunk),
			},
		})
	}
	return blocks
}
