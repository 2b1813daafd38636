package services

import (
	"github.com/zatekoja/facetedsearch/internal/domain/entities"
)

// SortOptions renders every configured sort option as a link over the
// current selection. The default option's link carries no order_by.
func (s *Searcher) SortOptions() ([]entities.SortLink, error) {
	if !s.searchExecuted {
		return nil, ErrNoSearchPerformed
	}

	current := s.facets.Params(nil, true)
	current.Del(entities.OrderParam)

	links := make([]entities.SortLink, 0, len(s.cfg.SortOptions))
	for _, opt := range s.cfg.SortOptions {
		token := entities.OrderToken(opt.Field, opt.Reverse)

		params := current
		if !opt.Default {
			params = entities.NewQueryParams()
			params.Set(entities.OrderParam, token)
			for _, key := range current.Keys() {
				value, _ := current.Get(key)
				params.Set(key, value)
			}
		}

		selected := opt.Default
		if s.explicitOrder {
			selected = s.orderBy == token
		}

		links = append(links, entities.SortLink{
			URL:      "?" + params.Encode(),
			Label:    opt.Label,
			Selected: selected,
		})
	}
	return links, nil
}
