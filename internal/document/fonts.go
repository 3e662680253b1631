package document

import (
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"go.uber.org/zap"
)

// maxFormDepth bounds nested form XObjects.
const maxFormDepth = 8

// maxRangeSize bounds a single bfrange so a corrupt CMap cannot allocate without limit.
const maxRangeSize = 1 << 16

// resources resolves the named fonts and form XObjects a content stream uses.
type resources interface {
	font(name string) *fontDecoder
	form(name string) (content []byte, res resources, ok bool)
}

// fontDecoder maps string bytes shown with one font to text.
type fontDecoder struct {
	toUnicode *toUnicodeMap
	// composite fonts (Type0) use multi-byte codes that are glyph IDs
	// without a ToUnicode map.
	composite bool
	charmap   *charmap.Charmap
}

func (f *fontDecoder) decode(raw []byte) string {
	switch {
	case f == nil:
		return decodeSimple(raw, nil)
	case f.toUnicode != nil:
		return f.decodeMapped(raw)
	case f.composite:
		return ""
	default:
		return decodeSimple(raw, f.charmap)
	}
}

func (f *fontDecoder) decodeMapped(raw []byte) string {
	var b strings.Builder
	for len(raw) > 0 {
		n, text := f.toUnicode.lookup(raw)
		if n == 0 {
			if f.composite {
				n = min(2, len(raw))
			} else {
				n, text = 1, decodeSimple(raw[:1], f.charmap)
			}
		}
		b.WriteString(text)
		raw = raw[n:]
	}
	return b.String()
}

// decodeSimple decodes single-byte codes, WinAnsi unless cm is set. Strings
// with a UTF-16BE byte order mark are decoded as UTF-16.
func decodeSimple(raw []byte, cm *charmap.Charmap) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		return string(out)
	}
	if cm == nil {
		cm = charmap.Windows1252
	}
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}

// toUnicodeMap is a parsed ToUnicode CMap
type toUnicodeMap struct {
	entries map[string]string
	// code lengths in bytes, longest first
	lengths []int
}

func (m *toUnicodeMap) lookup(raw []byte) (int, string) {
	for _, l := range m.lengths {
		if len(raw) < l {
			continue
		}
		if text, ok := m.entries[string(raw[:l])]; ok {
			return l, text
		}
	}
	return 0, ""
}

func utf16Text(b []byte) string {
	out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// codeAdd returns b read as a big-endian number plus n, in len(b) bytes.
func codeAdd(b []byte, n int) []byte {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0 && n > 0; i-- {
		sum := int(out[i]) + n
		out[i] = byte(sum)
		n = sum >> 8
	}
	return out
}

func codeValue(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// parseToUnicodeCMap reads the codespace, bfchar and bfrange sections of a
// ToUnicode CMap. Everything else in the CMap program is ignored.
func parseToUnicodeCMap(data []byte) *toUnicodeMap {
	m := &toUnicodeMap{entries: make(map[string]string)}
	lengths := make(map[int]bool)
	lx := &lexer{data: data}

	var section string
	var pending []token
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind == tokKeyword {
			switch kw := string(tok.str); kw {
			case "begincodespacerange", "beginbfchar", "beginbfrange":
				section = strings.TrimPrefix(kw, "begin")
			case "endcodespacerange", "endbfchar", "endbfrange":
				section = ""
			}
			pending = pending[:0]
			continue
		}
		if section == "" || (tok.kind != tokString && tok.kind != tokArray) {
			continue
		}

		pending = append(pending, tok)
		switch {
		case section == "codespacerange" && len(pending) == 2:
			if n := len(pending[0].str); n > 0 {
				lengths[n] = true
			}
		case section == "bfchar" && len(pending) == 2:
			if src := pending[0].str; len(src) > 0 {
				m.entries[string(src)] = utf16Text(pending[1].str)
				lengths[len(src)] = true
			}
		case section == "bfrange" && len(pending) == 3:
			m.addRange(pending[0].str, pending[1].str, pending[2])
			if n := len(pending[0].str); n > 0 {
				lengths[n] = true
			}
		default:
			continue
		}
		pending = pending[:0]
	}

	for l := range lengths {
		m.lengths = append(m.lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(m.lengths)))
	return m
}

func (m *toUnicodeMap) addRange(lo, hi []byte, dst token) {
	if len(lo) == 0 || len(lo) != len(hi) {
		return
	}
	count := codeValue(hi) - codeValue(lo) + 1
	if count <= 0 || count > maxRangeSize {
		return
	}

	for i := 0; i < count; i++ {
		src := string(codeAdd(lo, i))
		switch dst.kind {
		case tokArray:
			if i >= len(dst.items) {
				return
			}
			if dst.items[i].kind == tokString {
				m.entries[src] = utf16Text(dst.items[i].str)
			}
		case tokString:
			m.entries[src] = utf16Text(codeAdd(dst.str, i))
		}
	}
}

// fontCache holds decoders for one document, by font object number.
type fontCache map[int]*fontDecoder

// pdfResources resolves resources through a pdfcpu context.
type pdfResources struct {
	ctx    *model.Context
	dict   types.Dict
	cache  fontCache
	logger *zap.Logger
}

func newPDFResources(ctx *model.Context, dict types.Dict, cache fontCache, logger *zap.Logger) *pdfResources {
	return &pdfResources{ctx: ctx, dict: dict, cache: cache, logger: logger}
}

// entry returns the named object of a resource category such as Font or XObject.
func (r *pdfResources) entry(category, name string) (types.Object, bool) {
	if r.dict == nil {
		return nil, false
	}
	o, found := r.dict.Find(category)
	if !found {
		return nil, false
	}
	d, err := r.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return nil, false
	}
	return d.Find(name)
}

func (r *pdfResources) font(name string) *fontDecoder {
	o, ok := r.entry("Font", name)
	if !ok {
		return nil
	}

	ref, isRef := o.(types.IndirectRef)
	if isRef {
		if f, ok := r.cache[ref.ObjectNumber.Value()]; ok {
			return f
		}
	}

	f := r.parseFont(o)
	if isRef {
		r.cache[ref.ObjectNumber.Value()] = f
	}
	return f
}

func (r *pdfResources) parseFont(o types.Object) *fontDecoder {
	d, err := r.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return nil
	}

	f := &fontDecoder{}
	if subtype := d.Subtype(); subtype != nil && *subtype == "Type0" {
		f.composite = true
	}
	if enc := r.baseEncoding(d); enc == "MacRomanEncoding" {
		f.charmap = charmap.Macintosh
	}

	if o, found := d.Find("ToUnicode"); found {
		sd, _, err := r.ctx.DereferenceStreamDict(o)
		if err == nil && sd != nil {
			if err := sd.Decode(); err != nil {
				r.logger.Debug("Failed to decode ToUnicode stream", zap.Error(err))
			} else {
				f.toUnicode = parseToUnicodeCMap(sd.Content)
			}
		}
	}
	return f
}

// baseEncoding returns the name of a simple font's encoding, looking
// through an encoding dictionary to its BaseEncoding.
func (r *pdfResources) baseEncoding(font types.Dict) string {
	o, found := font.Find("Encoding")
	if !found {
		return ""
	}
	o, err := r.ctx.Dereference(o)
	if err != nil {
		return ""
	}
	switch enc := o.(type) {
	case types.Name:
		return enc.Value()
	case types.Dict:
		if base := enc.NameEntry("BaseEncoding"); base != nil {
			return *base
		}
	}
	return ""
}

func (r *pdfResources) form(name string) ([]byte, resources, bool) {
	o, ok := r.entry("XObject", name)
	if !ok {
		return nil, nil, false
	}
	sd, _, err := r.ctx.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return nil, nil, false
	}
	if subtype := sd.Subtype(); subtype == nil || *subtype != "Form" {
		return nil, nil, false
	}
	if err := sd.Decode(); err != nil {
		r.logger.Debug("Failed to decode form XObject", zap.String("name", name), zap.Error(err))
		return nil, nil, false
	}

	// Forms without their own resources use the page's.
	dict := r.dict
	if o, found := sd.Find("Resources"); found {
		if d, err := r.ctx.DereferenceDict(o); err == nil && d != nil {
			dict = d
		}
	}
	return sd.Content, newPDFResources(r.ctx, dict, r.cache, r.logger), true
}
