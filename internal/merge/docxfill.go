package merge

import (
	"github.com/beevik/etree"

	"github.com/Leolion08/ctom-sub000/internal/docxml"
	"github.com/Leolion08/ctom-sub000/internal/field"
)

// FillDocument substitutes values into a DOCX document's placeholder tokens
// and returns the new document bytes with the replacement count. Tokens may
// be fragmented across runs (Word splits text on spell-check and edit
// boundaries); each match is reassembled from the paragraph's full run text
// and replaced in place, leaving runs outside the match untouched. Tokens
// for fields without a value stay in the document.
func FillDocument(data []byte, fields []field.Def, values map[string]string) ([]byte, int, error) {
	types := make(map[string]field.Type, len(fields))
	for _, f := range fields {
		types[f.Name] = f.Type
	}

	doc, err := docxml.FromBytes(data)
	if err != nil {
		return nil, 0, err
	}
	body, err := doc.Body()
	if err != nil {
		return nil, 0, err
	}

	total := 0
	forEachParagraph(body, func(p *etree.Element) {
		total += fillParagraph(p, func(name string) (string, bool) {
			raw, ok := values[name]
			if !ok || raw == "" {
				return "", false
			}
			return FormatValue(types[name], raw), true
		})
	})

	if total > 0 {
		doc.MarkDirty(docxml.MainPart)
	}
	out, err := doc.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func forEachParagraph(el *etree.Element, fn func(p *etree.Element)) {
	if el == nil {
		return
	}
	if el.Tag == "p" {
		fn(el)
		return
	}
	for _, c := range el.ChildElements() {
		forEachParagraph(c, fn)
	}
}

// fillParagraph replaces every resolvable token in one paragraph. Matches
// are located in the concatenated run text and applied right to left so
// earlier offsets stay valid. The first run a match touches receives the
// replacement, runs fully covered by the match are emptied, and the last
// run keeps its tail.
func fillParagraph(p *etree.Element, resolve func(name string) (string, bool)) int {
	runs := docxml.ChildrenByTag(p, "r")
	if len(runs) == 0 {
		return 0
	}
	texts := make([]string, len(runs))
	orig := make([]string, len(runs))
	full := ""
	starts := make([]int, len(runs))
	for i, r := range runs {
		texts[i] = docxml.RunText(r)
		orig[i] = texts[i]
		starts[i] = len(full)
		full += texts[i]
	}

	matches := field.TokenRe.FindAllStringSubmatchIndex(full, -1)
	count := 0
	for mi := len(matches) - 1; mi >= 0; mi-- {
		m := matches[mi]
		val, ok := resolve(full[m[2]:m[3]])
		if !ok {
			continue
		}
		first, last := runAt(starts, texts, m[0]), runAt(starts, texts, m[1]-1)
		head := texts[first][:m[0]-starts[first]]
		tail := texts[last][m[1]-starts[last]:]
		if first == last {
			texts[first] = head + val + tail
		} else {
			texts[first] = head + val
			for i := first + 1; i < last; i++ {
				texts[i] = ""
			}
			texts[last] = tail
		}
		count++
	}
	if count == 0 {
		return 0
	}
	for i, r := range runs {
		if texts[i] != orig[i] {
			docxml.SetRunContent(r, texts[i])
		}
	}
	return count
}

// runAt finds the run whose text covers byte offset off.
func runAt(starts []int, texts []string, off int) int {
	for i := len(starts) - 1; i >= 0; i-- {
		if off >= starts[i] && len(texts[i]) > 0 {
			return i
		}
	}
	return 0
}
