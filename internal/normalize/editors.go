package normalize

import (
	"context"
	"fmt"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/normalize/ooxml"
)

// NewDocumentEditors returns the factory used in production: .docx
// packages are edited in place, legacy .doc binaries are passed through
// to the converter unchanged.
func NewDocumentEditors() EditorFactory {
	return EditorFactoryFunc(func(ctx context.Context, doc domain.Document) (Editor, error) {
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("document %q has no content", doc.FileName())
		}
		switch doc.Extension {
		case domain.ExtDOCX:
			ed, err := ooxml.Open(doc.Content)
			if err != nil {
				return nil, err
			}
			return ed, nil
		case domain.ExtDOC:
			return passthrough(doc.Content), nil
		default:
			return nil, &domain.UnsupportedFormatError{DocumentID: doc.ID, Name: doc.Name, Extension: doc.Extension}
		}
	})
}

// passthrough exports its content as is. Legacy .doc binaries cannot be
// restyled.
type passthrough []byte

func (p passthrough) ApplyCharacterStyle(string, string) (int, error) {
	return 0, fmt.Errorf("legacy .doc: %w", ErrStyleUnsupported)
}

func (p passthrough) Export() ([]byte, error) { return append([]byte(nil), p...), nil }
