package document

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func (e *Extractor) docxPages(ctx context.Context, rs io.ReadSeeker) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		data, err := io.ReadAll(rs)
		if err != nil {
			yield(Page{}, fmt.Errorf("reading docx: %w", err))
			return
		}

		doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			yield(Page{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
			return
		}
		defer doc.Close()

		pages, err := docxText(doc.Editable().GetContent())
		if err != nil {
			yield(Page{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err))
			return
		}

		for i, text := range pages {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			if !yield(Page{Number: i + 1, Text: text}, nil) {
				return
			}
		}
	}
}

// docxText walks word/document.xml. Paragraphs become lines and explicit
// page breaks start a new page.
func docxText(content string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		pages  []string
		page   strings.Builder
		inText bool
	)
	flush := func() {
		pages = append(pages, strings.Trim(page.String(), "\n"))
		page.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				page.WriteByte('\t')
			case "br", "cr":
				if attr(t, "type") == "page" {
					flush()
				} else {
					page.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				page.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}
	flush()

	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
