package raw

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/wudi/pdffont/recovery"
	"github.com/wudi/pdffont/scanner"
)

// ParserConfig controls raw parsing behavior.
type ParserConfig struct {
	Scanner scanner.Config
}

// NewParser constructs a linear-scan Parser. It walks the whole byte stream
// collecting `N G obj ... endobj` bodies and the trailer dictionary; it does
// not consult the cross-reference table, which makes it robust against stale
// or rebuilt xref sections.
func NewParser(cfg ParserConfig) Parser {
	return &parserImpl{cfg: cfg}
}

type parserImpl struct {
	cfg ParserConfig
}

func (p *parserImpl) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := NewDocument()
	doc.Version = headerVersion(data)

	s := scanner.New(data, p.cfg.Scanner)
	tr := &tokenReader{s: s}

	for {
		tok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == "trailer" {
			obj, err := parseObject(tr)
			if err != nil {
				return nil, fmt.Errorf("parse trailer: %w", err)
			}
			if dict, ok := obj.(*DictObj); ok {
				doc.Trailer = dict
			}
			continue
		}
		if tok.Type != scanner.TokenNumber {
			continue
		}
		objNum64, ok := toInt(tok.Value)
		if !ok {
			continue
		}
		objNum := int(objNum64)

		genTok, err := tr.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if genTok.Type != scanner.TokenNumber {
			tr.unread(genTok)
			continue
		}
		gen64, ok := toInt(genTok.Value)
		if !ok {
			continue
		}
		gen := int(gen64)

		kwTok, err := tr.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if kwTok.Type != scanner.TokenKeyword || kwTok.Value != "obj" {
			tr.unread(kwTok)
			tr.unread(genTok)
			continue
		}

		s.SetRecoveryLocation(recovery.Location{ObjectNum: objNum, ObjectGen: gen})

		obj, err := parseObject(tr)
		if err != nil {
			return nil, fmt.Errorf("parse object %d %d: %w", objNum, gen, err)
		}

		// A dictionary followed by a stream payload becomes a stream object.
		// The declared /Length shortcuts the endstream search.
		if dict, ok := obj.(*DictObj); ok {
			if l, ok := dictLength(dict); ok {
				s.SetNextStreamLength(l)
			}
			if streamTok, err := tr.next(); err == nil {
				if streamTok.Type == scanner.TokenStream {
					obj = NewStream(dict, copyBytes(streamTok.Value))
				} else {
					tr.unread(streamTok)
				}
			}
			s.SetNextStreamLength(-1)
		}

		// Consume optional endobj.
		if t, err := tr.next(); err == nil {
			if t.Type != scanner.TokenKeyword || t.Value != "endobj" {
				tr.unread(t)
			}
		}

		doc.Objects[ObjectRef{Num: objNum, Gen: gen}] = obj
	}

	return doc, nil
}

func headerVersion(data []byte) string {
	const prefix = "%PDF-"
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ""
	}
	rest := data[len(prefix):]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	return string(rest[:end])
}

func dictLength(dict *DictObj) (int, bool) {
	v, ok := dict.Get(NameLiteral("Length"))
	if !ok {
		return 0, false
	}
	// Indirect lengths cannot be resolved mid-scan; fall back to searching.
	if n, ok := v.(Number); ok && n.IsInteger() {
		return int(n.Int()), true
	}
	return 0, false
}

func parseObject(tr *tokenReader) (Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		if v, ok := tok.Value.(string); ok {
			return NameObj{Val: v}, nil
		}
	case scanner.TokenNumber:
		if i, ok := tok.Value.(int64); ok {
			return NumberObj{I: i, IsInt: true}, nil
		}
		if f, ok := tok.Value.(float64); ok {
			return NumberObj{F: f, IsInt: false}, nil
		}
	case scanner.TokenBoolean:
		if v, ok := tok.Value.(bool); ok {
			return BoolObj{V: v}, nil
		}
	case scanner.TokenNull:
		return NullObj{}, nil
	case scanner.TokenString:
		if b, ok := tok.Value.([]byte); ok {
			return StringObj{Bytes: b}, nil
		}
	case scanner.TokenArray:
		return parseArray(tr)
	case scanner.TokenDict:
		return parseDict(tr)
	case scanner.TokenRef:
		if v, ok := tok.Value.(struct{ Num, Gen int }); ok {
			return RefObj{R: ObjectRef{Num: v.Num, Gen: v.Gen}}, nil
		}
	}
	return nil, fmt.Errorf("unexpected token: %v", tok.Type)
}

func parseArray(tr *tokenReader) (Object, error) {
	arr := &ArrayObj{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == "]" {
			break
		}
		tr.unread(tok)
		item, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
	return arr, nil
}

func parseDict(tr *tokenReader) (Object, error) {
	d := Dict()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == ">>" {
			break
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("expected name in dict, got %v", tok.Type)
		}
		key, _ := tok.Value.(string)
		val, err := parseObject(tr)
		if err != nil {
			return nil, err
		}
		d.Set(NameObj{Val: key}, val)
	}
	return d, nil
}

// ParseObjectBytes parses a single direct object from a byte slice.
func ParseObjectBytes(data []byte) (Object, error) {
	s := scanner.New(data, scanner.Config{})
	return parseObject(&tokenReader{s: s})
}

type tokenReader struct {
	s   *scanner.Scanner
	buf []scanner.Token
}

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) {
	r.buf = append(r.buf, tok)
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func copyBytes(v interface{}) []byte {
	b, ok := v.([]byte)
	if !ok {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
