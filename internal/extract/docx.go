package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPath = "word/document.xml"

// extractDOCX returns the paragraphs of the main document part, one per line.
func extractDOCX(path string) (text string, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		err = errors.Join(err, zr.Close())
	}()

	for _, f := range zr.File {
		if f.Name != docxBodyPath {
			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			return "", fmt.Errorf("open %s: %w", docxBodyPath, openErr)
		}
		defer func() {
			err = errors.Join(err, rc.Close())
		}()

		return docxParagraphs(rc)
	}

	return "", fmt.Errorf("%s is missing", docxBodyPath)
}

func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		inPara     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
