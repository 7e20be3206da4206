package mobileconf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseConfirmations reads the confirmation listing page.
//
//   - #mobileconf_empty that is also .mobileconf_done carries an explanation
//     in its second div; that text is returned as a *RemoteError.
//   - #mobileconf_empty alone means there is nothing to confirm.
//   - otherwise every .mobileconf_list_entry becomes a Confirmation.
func ParseConfirmations(page []byte) ([]Confirmation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	if empty := doc.Find("#mobileconf_empty").First(); empty.Length() > 0 {
		if empty.Is(".mobileconf_done") {
			if msg := empty.Find("div").Eq(1); msg.Length() > 0 {
				return nil, &RemoteError{Message: strings.TrimSpace(msg.Text())}
			}
		}
		return []Confirmation{}, nil
	}

	confs := []Confirmation{}
	var parseErr error
	doc.Find(".mobileconf_list_entry").EachWithBreak(func(i int, entry *goquery.Selection) bool {
		c, err := parseEntry(entry)
		if err != nil {
			parseErr = fmt.Errorf("entry %d: %w", i, err)
			return false
		}
		confs = append(confs, c)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return confs, nil
}

func parseEntry(entry *goquery.Selection) (Confirmation, error) {
	var c Confirmation
	var err error
	if c.ID, err = uintAttr(entry, "data-confid"); err != nil {
		return c, err
	}
	if c.Key, err = uintAttr(entry, "data-key"); err != nil {
		return c, err
	}
	if c.Creator, err = uintAttr(entry, "data-creator"); err != nil {
		return c, err
	}
	typ, _ := entry.Attr("data-type")
	c.Type = parseConfirmationType(typ)

	desc := entry.Find(".mobileconf_list_entry_description").First()
	if desc.Length() == 0 {
		return c, fmt.Errorf("%w: missing description", ErrMalformedPage)
	}
	c.Description = joinText(desc.Nodes[0])
	return c, nil
}

func uintAttr(s *goquery.Selection, name string) (uint64, error) {
	v, ok := s.Attr(name)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedPage, name)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedPage, name, v)
	}
	return n, nil
}

// joinText trims every text node under n and joins the non-empty ones with
// a single space.
func joinText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
