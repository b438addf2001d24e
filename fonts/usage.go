package fonts

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/wudi/pdffont/document"
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
	"github.com/wudi/pdffont/scanner"
)

// Operand stack depth for the content interpreter. Text operators take at
// most a handful of operands; anything deeper is a runaway stream.
const maxOperandStack = 64

// Used reports the fonts selected anywhere in the document.
func (m *Manager) Used(ctx context.Context) (map[raw.ObjectRef]struct{}, error) {
	return m.UsedInPageRange(ctx, 1, m.h.PageCount())
}

// UsedInPageRange interprets each page's content stream in the 1-based,
// inclusive range [first, last] and collects the fonts actually selected via
// the Tf operator inside BT/ET text blocks. Pages whose content cannot be
// decoded or tokenized are skipped, not fatal. Out-of-range endpoints are
// clamped to the document.
func (m *Manager) UsedInPageRange(ctx context.Context, first, last int) (map[raw.ObjectRef]struct{}, error) {
	used := make(map[raw.ObjectRef]struct{})
	if first < 1 {
		first = 1
	}
	if last < 1 || last > m.h.PageCount() {
		last = m.h.PageCount()
	}
	scanned, skipped := 0, 0
	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := m.h.Page(i - 1)
		if err != nil {
			return nil, err
		}
		if err := m.usedInPage(ctx, page, used); err != nil {
			skipped++
			m.log.Warn("skipping malformed page content",
				observability.Int("page", i),
				observability.Error("err", err))
			continue
		}
		scanned++
	}
	m.log.Debug("usage scan finished",
		observability.Int(observability.MetricPagesScanned, scanned),
		observability.Int(observability.MetricPagesSkipped, skipped))
	return used, nil
}

func (m *Manager) usedInPage(ctx context.Context, page *document.Page, used map[raw.ObjectRef]struct{}) error {
	segments, err := page.Contents(ctx)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	// Content may be split across streams at arbitrary token boundaries;
	// interpret the concatenation.
	content := bytes.Join(segments, []byte("\n"))

	s := scanner.New(content, scanner.Config{})
	inText := false
	var operands []scanner.Token
	for {
		tok, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			op, _ := tok.Value.(string)
			switch op {
			case "BT":
				inText = true
			case "ET":
				inText = false
			case "Tf":
				if inText {
					m.attributeTf(page, operands, used)
				}
			}
			operands = operands[:0]
		case scanner.TokenStream, scanner.TokenInlineImage:
			operands = operands[:0]
		default:
			operands = append(operands, tok)
			if len(operands) > maxOperandStack {
				operands = operands[1:]
			}
		}
	}
}

// attributeTf resolves the font name beneath the size operand of a Tf
// operator against the page's Font resources. Short stacks and non-name
// operands are skipped silently; Tf can legally appear with junk around it.
func (m *Manager) attributeTf(page *document.Page, operands []scanner.Token, used map[raw.ObjectRef]struct{}) {
	if len(operands) < 2 {
		return
	}
	nameTok := operands[len(operands)-2]
	if nameTok.Type != scanner.TokenName {
		return
	}
	name, _ := nameTok.Value.(string)
	if name == "" {
		return
	}
	if ref, ok := page.FontRef(name); ok {
		used[ref] = struct{}{}
	}
}

// Unused returns the catalog fonts never selected by any page content,
// excluding descendants of fonts that are in use. The result is sorted by
// (Num, Gen) so pruning is deterministic.
func (m *Manager) Unused(ctx context.Context) ([]raw.ObjectRef, error) {
	return m.UnusedInPageRange(ctx, 1, m.h.PageCount())
}

// UnusedInPageRange is Unused restricted to the usage evidence of the given
// 1-based inclusive page range.
func (m *Manager) UnusedInPageRange(ctx context.Context, first, last int) ([]raw.ObjectRef, error) {
	records, err := m.List(ctx, false)
	if err != nil {
		return nil, err
	}
	used, err := m.UsedInPageRange(ctx, first, last)
	if err != nil {
		return nil, err
	}
	// A used composite font keeps its descendant alive.
	for _, rec := range records {
		if rec.DescendantFont == nil {
			continue
		}
		if _, ok := used[rec.Ref]; ok {
			used[*rec.DescendantFont] = struct{}{}
		}
	}
	var out []raw.ObjectRef
	for _, rec := range records {
		if _, ok := used[rec.Ref]; !ok {
			out = append(out, rec.Ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Num != out[j].Num {
			return out[i].Num < out[j].Num
		}
		return out[i].Gen < out[j].Gen
	})
	return out, nil
}
