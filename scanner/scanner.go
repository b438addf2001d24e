package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"unicode"

	"github.com/wudi/pdffont/recovery"
)

type TokenType int

const (
	TokenDict        TokenType = iota // '<<'
	TokenArray                        // '['
	TokenName                         // '/Name'
	TokenString                       // literal or hex string
	TokenNumber                       // numeric value
	TokenBoolean                      // true/false
	TokenNull                         // null
	TokenRef                          // indirect ref '5 0 R'
	TokenStream                       // 'stream' keyword payload
	TokenInlineImage                  // inline image data following ID ... EI
	TokenKeyword                      // other keywords (obj, endobj, >>, ], operators, ...)
)

type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int
}

type Config struct {
	MaxStringLength int
	MaxArrayDepth   int
	MaxDictDepth    int
	MaxStreamLength int
	MaxInlineImage  int
	Recovery        recovery.Strategy
}

// Scanner lexes PDF syntax from an in-memory buffer. Both whole-file object
// bodies and per-page content streams use the same token alphabet.
type Scanner struct {
	data          []byte
	pos           int
	cfg           Config
	nextStreamLen int
	arrayDepth    int
	dictDepth     int
	recLoc        recovery.Location
	lastAction    recovery.Action
}

func New(data []byte, cfg Config) *Scanner {
	return &Scanner{data: data, cfg: cfg, nextStreamLen: -1}
}

func (s *Scanner) Position() int { return s.pos }

// SetNextStreamLength tells the scanner the declared /Length of the next
// stream payload, avoiding a forward search for the endstream marker.
func (s *Scanner) SetNextStreamLength(n int) { s.nextStreamLen = n }

func (s *Scanner) SetRecoveryLocation(loc recovery.Location) { s.recLoc = loc }

func (s *Scanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		return Token{}, err
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return s.emit(Token{Type: TokenDict, Value: "<<", Pos: start})
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return s.emit(Token{Type: TokenKeyword, Value: ">>", Pos: start})
		}
		s.pos++
		return s.emit(Token{Type: TokenKeyword, Value: string(c), Pos: start})
	case '[':
		s.pos++
		return s.emit(Token{Type: TokenArray, Value: "[", Pos: start})
	case ']':
		s.pos++
		return s.emit(Token{Type: TokenKeyword, Value: "]", Pos: start})
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isDigitStart(c) {
		return s.scanNumberOrRef()
	}
	if isAlpha(c) {
		return s.scanKeyword()
	}
	s.pos++
	return s.emit(Token{Type: TokenKeyword, Value: string(c), Pos: start})
}

func (s *Scanner) skipWSAndComments() error {
	for {
		if s.pos >= len(s.data) {
			return io.EOF
		}
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && !isEOL(s.data[s.pos]) {
				s.pos++
			}
			continue
		}
		return nil
	}
}

func isDigitStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }
func isAlpha(c byte) bool      { return unicode.IsLetter(rune(c)) }

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // skip '/'
	var out bytes.Buffer
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' { // hex escape in name
			s.pos++
			a := s.hexNibble()
			b := s.hexNibble()
			out.WriteByte((a << 4) | b)
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return s.emit(Token{Type: TokenName, Value: out.String(), Pos: start})
}

func (s *Scanner) hexNibble() byte {
	if s.pos >= len(s.data) {
		return 0
	}
	c := s.data[s.pos]
	s.pos++
	return fromHex(c)
}

func (s *Scanner) scanLiteralString() (Token, error) { // PDF 7.3.4.2
	start := s.pos
	s.pos++ // skip '('
	var buf bytes.Buffer
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '\\' {
			s.pos++
			if s.pos >= len(s.data) {
				break
			}
			esc := s.data[s.pos]
			// Line continuation: backslash followed by EOL is ignored.
			if esc == '\r' {
				s.pos++
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			}
			if esc == '\n' {
				s.pos++
				continue
			}
			// Octal escape up to 3 digits.
			if esc >= '0' && esc <= '7' {
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < len(s.data); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = (val << 3) + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
				continue
			}
			buf.WriteByte(translateEscape(esc))
			s.pos++
			continue
		}
		if c == '(' {
			depth++
			buf.WriteByte(c)
			s.pos++
			continue
		}
		if c == ')' {
			depth--
			if depth == 0 {
				s.pos++
				break
			}
			buf.WriteByte(c)
			s.pos++
			continue
		}
		buf.WriteByte(c)
		s.pos++
		if s.cfg.MaxStringLength > 0 && buf.Len() > s.cfg.MaxStringLength {
			return Token{}, s.recover(errors.New("literal string too long"), "literal")
		}
	}
	if depth != 0 {
		if err := s.recover(errors.New("unterminated literal string"), "literal"); err != nil {
			if s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
		}
	}
	return s.emit(Token{Type: TokenString, Value: buf.Bytes(), Pos: start})
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // skip '<'
	var hexbuf []byte
	closed := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '>' {
			s.pos++
			closed = true
			break
		}
		if isWhitespace(c) {
			s.pos++
			continue
		}
		hexbuf = append(hexbuf, c)
		s.pos++
	}
	if !closed {
		if err := s.recover(errors.New("unterminated hex string"), "hex"); err != nil {
			if s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
		}
	}
	if len(hexbuf)%2 == 1 {
		hexbuf = append(hexbuf, '0')
	}
	if s.cfg.MaxStringLength > 0 && len(hexbuf)/2 > s.cfg.MaxStringLength {
		return Token{}, s.recover(errors.New("hex string too long"), "hex")
	}
	out := make([]byte, 0, len(hexbuf)/2)
	for i := 0; i < len(hexbuf); i += 2 {
		out = append(out, (fromHex(hexbuf[i])<<4)|fromHex(hexbuf[i+1]))
	}
	return s.emit(Token{Type: TokenString, Value: out, Pos: start})
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

// scanStream consumes the payload after a 'stream' keyword, either using the
// declared length hint or searching for the endstream marker.
func (s *Scanner) scanStream(start int) (Token, error) {
	// PDF 7.3.8: stream keyword must be followed by EOL before data.
	if s.pos >= len(s.data) {
		return Token{}, s.recover(errors.New("stream missing EOL before data"), "stream")
	}
	if s.data[s.pos] == '\r' {
		s.pos++
		if s.pos < len(s.data) && s.data[s.pos] == '\n' {
			s.pos++
		}
	} else if s.data[s.pos] == '\n' {
		s.pos++
	} else {
		return Token{}, s.recover(errors.New("stream missing EOL before data"), "stream")
	}
	dataStart := s.pos
	needle := []byte("endstream")
	if s.nextStreamLen >= 0 {
		l := s.nextStreamLen
		s.nextStreamLen = -1
		if s.cfg.MaxStreamLength > 0 && l > s.cfg.MaxStreamLength {
			return Token{}, errors.New("stream too long")
		}
		if dataStart+l > len(s.data) {
			if err := s.recover(errors.New("stream ended before declared length"), "stream"); err != nil && s.lastAction != recovery.ActionFix {
				return Token{}, err
			}
			l = len(s.data) - dataStart
		}
		end := dataStart + l
		payload := append([]byte(nil), s.data[dataStart:end]...)
		s.pos = end
		if s.pos < len(s.data) && s.data[s.pos] == '\r' {
			s.pos++
		}
		if s.pos < len(s.data) && s.data[s.pos] == '\n' {
			s.pos++
		}
		if idx := bytes.Index(s.data[s.pos:], needle); idx >= 0 {
			s.pos += idx + len(needle)
		} else {
			s.pos = len(s.data)
		}
		return s.emit(Token{Type: TokenStream, Value: payload, Pos: start})
	}
	idx := -1
	for i := dataStart; i+len(needle) <= len(s.data); i++ {
		if s.data[i] != 'e' || !bytes.Equal(s.data[i:i+len(needle)], needle) {
			continue
		}
		prevOK := i == dataStart || isWhitespace(s.data[i-1])
		followOK := i+len(needle) >= len(s.data) || isDelimiter(s.data[i+len(needle)])
		if prevOK && followOK {
			idx = i
			break
		}
	}
	if idx == -1 {
		payload := append([]byte(nil), s.data[dataStart:]...)
		if s.cfg.MaxStreamLength > 0 && len(payload) > s.cfg.MaxStreamLength {
			return Token{}, s.recover(errors.New("stream too long"), "stream")
		}
		s.pos = len(s.data)
		return s.emit(Token{Type: TokenStream, Value: payload, Pos: start})
	}
	end := idx
	// Trim a single EOL before the marker.
	if end > dataStart && s.data[end-1] == '\n' {
		end--
	}
	if end > dataStart && s.data[end-1] == '\r' {
		end--
	}
	payload := append([]byte(nil), s.data[dataStart:end]...)
	if s.cfg.MaxStreamLength > 0 && len(payload) > s.cfg.MaxStreamLength {
		return Token{}, s.recover(errors.New("stream too long"), "stream")
	}
	s.pos = idx + len(needle)
	return s.emit(Token{Type: TokenStream, Value: payload, Pos: start})
}

// scanInlineImage consumes bytes after the ID keyword up to the EI delimiter.
// Content-stream-only construct; the scanner does not interpret parameters.
func (s *Scanner) scanInlineImage(start int) (Token, error) {
	if s.pos >= len(s.data) || !isWhitespace(s.data[s.pos]) {
		return Token{}, s.recover(errors.New("inline image missing whitespace after ID"), "inline_image")
	}
	s.pos++
	dataStart := s.pos
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' {
			prevOK := s.pos > dataStart && isWhitespace(s.data[s.pos-1])
			nextOK := s.pos+2 >= len(s.data) || isDelimiter(s.data[s.pos+2])
			if prevOK && nextOK {
				end := s.pos
				if end > dataStart && isWhitespace(s.data[end-1]) {
					end--
				}
				payload := append([]byte(nil), s.data[dataStart:end]...)
				if s.cfg.MaxInlineImage > 0 && len(payload) > s.cfg.MaxInlineImage {
					return Token{}, s.recover(errors.New("inline image too long"), "inline_image")
				}
				s.pos += 2
				return s.emit(Token{Type: TokenInlineImage, Value: payload, Pos: start})
			}
		}
		s.pos++
		if s.cfg.MaxInlineImage > 0 && s.pos-dataStart > s.cfg.MaxInlineImage {
			return Token{}, s.recover(errors.New("inline image too long"), "inline_image")
		}
	}
	return Token{}, s.recover(errors.New("unterminated inline image"), "inline_image")
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}
func isEOL(c byte) bool { return c == '\r' || c == '\n' }
func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func (s *Scanner) peekAhead(n int) byte {
	if s.pos+n >= len(s.data) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		buf.WriteByte(c)
		s.pos++
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Value: kw == "true", Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Value: nil, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	case "ID": // inline image data; caller has parsed the image dict already
		return s.scanInlineImage(start)
	default:
		return Token{Type: TokenKeyword, Value: kw, Pos: start}, nil
	}
}

func (s *Scanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	num1 := s.scanNumberString()
	if num1 == "" {
		return Token{}, errors.New("invalid number")
	}
	save := s.pos
	s.skipWSAndComments()
	secondStart := s.pos
	num2 := s.scanNumberString()
	if num2 != "" { // possible ref
		s.skipWSAndComments()
		if s.pos < len(s.data) && s.data[s.pos] == 'R' &&
			(s.pos+1 >= len(s.data) || isDelimiter(s.data[s.pos+1])) {
			s.pos++
			n1, _ := strconv.Atoi(num1)
			n2, _ := strconv.Atoi(num2)
			return Token{Type: TokenRef, Value: struct{ Num, Gen int }{Num: n1, Gen: n2}, Pos: start}, nil
		}
	}
	// Not a ref; the second number (if any) is re-read by the caller.
	if num2 != "" {
		s.pos = secondStart
	} else {
		s.pos = save
	}
	if i, err := strconv.ParseInt(num1, 10, 64); err == nil {
		return s.emit(Token{Type: TokenNumber, Value: i, Pos: start})
	}
	f, _ := strconv.ParseFloat(num1, 64)
	return s.emit(Token{Type: TokenNumber, Value: f, Pos: start})
}

func (s *Scanner) scanNumberString() string {
	start := s.pos
	var buf bytes.Buffer
	seenDigit := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			buf.WriteByte(c)
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			s.pos++
			continue
		}
		break
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return buf.String()
}

func (s *Scanner) recover(err error, loc string) error {
	if s.cfg.Recovery == nil {
		return err
	}
	location := s.recLoc
	location.ByteOffset = int64(s.pos)
	if location.Component != "" {
		location.Component += "->"
	}
	location.Component += "scanner:" + loc
	action := s.cfg.Recovery.OnError(nil, err, location)
	s.lastAction = action
	switch action {
	case recovery.ActionSkip, recovery.ActionFix:
		return nil
	default:
		return err
	}
}

func (s *Scanner) emit(tok Token) (Token, error) {
	switch tok.Type {
	case TokenArray:
		s.arrayDepth++
		if s.cfg.MaxArrayDepth > 0 && s.arrayDepth > s.cfg.MaxArrayDepth {
			return Token{}, s.recover(errors.New("array depth exceeded"), "array")
		}
	case TokenDict:
		s.dictDepth++
		if s.cfg.MaxDictDepth > 0 && s.dictDepth > s.cfg.MaxDictDepth {
			return Token{}, s.recover(errors.New("dict depth exceeded"), "dict")
		}
	case TokenKeyword:
		if tok.Value == "]" {
			if s.arrayDepth == 0 {
				return Token{}, s.recover(errors.New("array depth underflow"), "array")
			}
			s.arrayDepth--
		}
		if tok.Value == ">>" {
			if s.dictDepth == 0 {
				return Token{}, s.recover(errors.New("dict depth underflow"), "dict")
			}
			s.dictDepth--
		}
	}
	return tok, nil
}
