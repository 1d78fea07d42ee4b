package citaprevia

import (
	"bytes"
	"fmt"

	"citaprevia/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// option is one <option> of a grouped <select>, labelled with the <optgroup> it sits in.
type option struct {
	Group string
	Name  string
	Id    uint32
}

// parseOptionTree walks select#selectId > optgroup > option. Options outside of an optgroup are
// placeholders and are ignored.
func parseOptionTree(body []byte, selectId string) ([]option, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, structureError("parse html: %v", err)
	}

	sel := doc.Find(fmt.Sprintf("select[id=%s]", selectId)).First()
	if sel.Length() == 0 {
		return nil, structureError("select #%s not found", selectId)
	}
	groups := sel.Find("optgroup")
	if groups.Length() == 0 {
		return nil, structureError("select #%s has no optgroup", selectId)
	}

	var out []option
	for i := 0; i < groups.Length(); i++ {
		group := groups.Eq(i)
		label, ok := group.Attr("label")
		if !ok {
			return nil, structureError("optgroup %d of #%s has no label", i, selectId)
		}
		label = htmlutil.Normalize(label)

		options := group.Find("option")
		for j := 0; j < options.Length(); j++ {
			opt := options.Eq(j)
			value, ok := opt.Attr("value")
			if !ok {
				return nil, structureError("option %d of optgroup %q has no value", j, label)
			}
			id, err := parseId(value)
			if err != nil {
				return nil, structureError("option value %q of optgroup %q: %v", value, label, err)
			}
			out = append(out, option{
				Group: label,
				Name:  htmlutil.NormalizedText(opt.Nodes[0]),
				Id:    id,
			})
		}
	}
	return out, nil
}
