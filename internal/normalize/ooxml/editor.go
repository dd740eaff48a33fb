// Package ooxml edits WordprocessingML packages in memory. It knows just
// enough of the format to restyle runs and re-export the archive; all
// other parts are copied through untouched.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Errors returned by Open and ApplyCharacterStyle.
var (
	ErrNotWordDocument = errors.New("not a word processing package")
	ErrNoStylesPart    = errors.New("package has no styles part")
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"

	// hiddenColor matches the page background of generated documents.
	hiddenColor = "FFFFFF"
)

var (
	runRe      = regexp.MustCompile(`(?s)<w:r(?:\s[^>]*)?>.*?</w:r>`)
	runOpenRe  = regexp.MustCompile(`^<w:r(?:\s[^>]*)?>`)
	textRe     = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	rPrRe      = regexp.MustCompile(`(?s)<w:rPr>(.*?)</w:rPr>|<w:rPr/>`)
	rStyleRe   = regexp.MustCompile(`<w:rStyle\s[^>]*/>`)
	colorRe    = regexp.MustCompile(`<w:color\s[^>]*/>`)
	stylesEnd  = regexp.MustCompile(`</w:styles>\s*$`)
	storyPartR = regexp.MustCompile(`^word/(?:header|footer)\d*\.xml$`)
)

// Editor is an open .docx package. It is not safe for concurrent use;
// each document gets its own Editor.
type Editor struct {
	files []*zip.File
	parts map[string][]byte // edited parts, by name
}

// Open reads a .docx package.
func Open(content []byte) (*Editor, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWordDocument, err)
	}
	e := &Editor{files: zr.File, parts: make(map[string][]byte)}
	if e.file(documentPart) == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotWordDocument, documentPart)
	}
	return e, nil
}

func (e *Editor) file(name string) *zip.File {
	for _, f := range e.files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (e *Editor) read(name string) ([]byte, error) {
	if b, ok := e.parts[name]; ok {
		return b, nil
	}
	f := e.file(name)
	if f == nil {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// storyParts lists the body, header and footer parts.
func (e *Editor) storyParts() []string {
	out := []string{documentPart}
	for _, f := range e.files {
		if storyPartR.MatchString(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}

// ApplyCharacterStyle gives every run whose text contains marker the
// character style styleID, defining the style as hidden text when the
// package lacks it. Direct color formatting on matched runs is dropped so
// the style's color applies. A marker split across runs is not matched.
// It returns the number of restyled runs.
func (e *Editor) ApplyCharacterStyle(styleID, marker string) (int, error) {
	if styleID == "" || marker == "" {
		return 0, errors.New("style and marker are required")
	}
	escaped := escape(marker)

	total := 0
	for _, name := range e.storyParts() {
		b, err := e.read(name)
		if err != nil {
			return total, err
		}
		n := 0
		out := runRe.ReplaceAllFunc(b, func(run []byte) []byte {
			if !runContains(run, escaped) {
				return run
			}
			n++
			return styleRun(run, styleID)
		})
		if n > 0 {
			e.parts[name] = out
			total += n
		}
	}
	if total == 0 {
		return 0, nil
	}
	if err := e.ensureStyle(styleID); err != nil {
		return total, err
	}
	return total, nil
}

func runContains(run []byte, marker string) bool {
	var text strings.Builder
	for _, m := range textRe.FindAllSubmatch(run, -1) {
		text.Write(m[1])
	}
	return strings.Contains(text.String(), marker)
}

func styleRun(run []byte, styleID string) []byte {
	rStyle := fmt.Sprintf(`<w:rStyle w:val="%s"/>`, escape(styleID))
	if loc := rPrRe.FindIndex(run); loc != nil {
		props := run[loc[0]:loc[1]]
		inner := []byte{}
		if m := rPrRe.FindSubmatch(props); m != nil && m[1] != nil {
			inner = m[1]
		}
		inner = rStyleRe.ReplaceAll(inner, nil)
		inner = colorRe.ReplaceAll(inner, nil)

		var buf bytes.Buffer
		buf.Write(run[:loc[0]])
		buf.WriteString("<w:rPr>")
		buf.WriteString(rStyle)
		buf.Write(inner)
		buf.WriteString("</w:rPr>")
		buf.Write(run[loc[1]:])
		return buf.Bytes()
	}
	open := runOpenRe.Find(run)
	var buf bytes.Buffer
	buf.Write(open)
	buf.WriteString("<w:rPr>" + rStyle + "</w:rPr>")
	buf.Write(run[len(open):])
	return buf.Bytes()
}

func (e *Editor) ensureStyle(styleID string) error {
	b, err := e.read(stylesPart)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoStylesPart, err)
	}
	id := escape(styleID)
	if bytes.Contains(b, []byte(`w:styleId="`+id+`"`)) {
		return nil
	}
	loc := stylesEnd.FindIndex(b)
	if loc == nil {
		return fmt.Errorf("%w: malformed %s", ErrNoStylesPart, stylesPart)
	}
	def := fmt.Sprintf(`<w:style w:type="character" w:customStyle="1" w:styleId="%[1]s">`+
		`<w:name w:val="%[1]s"/><w:rPr><w:color w:val="%[2]s"/></w:rPr></w:style>`, id, hiddenColor)

	var buf bytes.Buffer
	buf.Write(b[:loc[0]])
	buf.WriteString(def)
	buf.Write(b[loc[0]:])
	e.parts[stylesPart] = buf.Bytes()
	return nil
}

// Export writes the package with every edit applied. Entry order and
// untouched entries are preserved byte for byte.
func (e *Editor) Export() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range e.files {
		edited, ok := e.parts[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(edited); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
