package normalize_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/normalize"
)

// fakeEditor prefixes exports so tests can tell styled bytes from source
// bytes.
type fakeEditor struct {
	content  []byte
	styled   []string
	styleErr error
}

func (e *fakeEditor) ApplyCharacterStyle(style, marker string) (int, error) {
	if e.styleErr != nil {
		return 0, e.styleErr
	}
	e.styled = append(e.styled, style+"|"+marker)
	return 1, nil
}

func (e *fakeEditor) Export() ([]byte, error) {
	return append([]byte("styled:"), e.content...), nil
}

type editorFactory struct {
	mu       sync.Mutex
	opened   []string
	editors  []*fakeEditor
	styleErr error
}

func (f *editorFactory) Open(_ context.Context, doc domain.Document) (normalize.Editor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, doc.ID)
	ed := &fakeEditor{content: doc.Content, styleErr: f.styleErr}
	f.editors = append(f.editors, ed)
	return ed, nil
}

// remote fakes the upload, conversion and fetch collaborators.
type remote struct {
	mu          sync.Mutex
	uploads     map[string][]byte
	mimeTypes   map[string]string
	conversions int
	failConvert string
	uploadErr   error
}

var errConvert = errors.New("conversion service refused the document")

func newRemote() *remote {
	return &remote{uploads: map[string][]byte{}, mimeTypes: map[string]string{}}
}

func (r *remote) UploadDocument(_ context.Context, name, mimeType string, content []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uploadErr != nil {
		return "", r.uploadErr
	}
	url := "https://blob/" + name
	r.uploads[url] = content
	r.mimeTypes[name] = mimeType
	return url, nil
}

func (r *remote) ConvertToPdf(_ context.Context, sourceURL, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions++
	if name == r.failConvert {
		return "", errConvert
	}
	return sourceURL + ".pdf", nil
}

func (r *remote) Fetch(_ context.Context, url string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.uploads[url[:len(url)-len(".pdf")]]
	if !ok {
		return nil, fmt.Errorf("no pdf at %s", url)
	}
	return append([]byte("%PDF:"), src...), nil
}

func doc(name, ext, content string) domain.Document {
	return domain.NewDocument(domain.UploadedFrom(name+"."+ext), name+"."+ext, "kyc", []byte(content))
}
