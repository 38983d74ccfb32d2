package halserver

import (
	"fmt"

	halclient "github.com/reoring/halclient"
)

func simpleEntityHref(id int64) string { return fmt.Sprintf("/simpleEntities/%d", id) }
func parentHref(id int64) string       { return fmt.Sprintf("/parents/%d", id) }
func childHref(id int64) string        { return fmt.Sprintf("/children/%d", id) }

func (s *Server) simpleEntityResource(e SimpleEntity) (*halclient.Resource, error) {
	res, err := halclient.FromBody(s.json, e)
	if err != nil {
		return nil, err
	}
	res.WithSelf(simpleEntityHref(e.ID))
	if e.RelatedID != 0 {
		res.WithLink("related", simpleEntityHref(e.ID)+"/related")
	}
	return res, nil
}

func (s *Server) childResource(c Child) (*halclient.Resource, error) {
	res, err := halclient.FromBody(s.json, c)
	if err != nil {
		return nil, err
	}
	return res.WithSelf(childHref(c.ID)), nil
}

// parentResource renders p with its children in the requested mode.
func (s *Server) parentResource(p Parent, children []Child, mode string) (*halclient.Resource, error) {
	res, err := halclient.FromBody(s.json, p)
	if err != nil {
		return nil, err
	}
	res.WithSelf(parentHref(p.ID) + "{?children}")
	res.Links[halclient.RelSelf][0].Templated = true

	switch mode {
	case ModeEmbed:
		docs := make([]*halclient.Resource, 0, len(children))
		for _, c := range children {
			doc, err := s.childResource(c)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		res.Embed("children", docs...)
	case ModeLink:
		hrefs := make([]string, 0, len(children))
		for _, c := range children {
			hrefs = append(hrefs, childHref(c.ID))
		}
		res.WithLinks("children", hrefs...)
	case ModeInline, ModeMixed:
		items := make([]any, 0, len(children))
		for i, c := range children {
			if mode == ModeMixed && i%2 == 1 {
				items = append(items, halclient.Link{Href: childHref(c.ID)})
				continue
			}
			doc, err := s.childResource(c)
			if err != nil {
				return nil, err
			}
			items = append(items, doc)
		}
		raw, err := s.json.Marshal(items)
		if err != nil {
			return nil, err
		}
		res.State["children"] = raw
	default:
		return nil, fmt.Errorf("unknown children mode %q", mode)
	}
	return res, nil
}
