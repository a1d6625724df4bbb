package adapter

import (
	"encoding/json"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// NewSearchHistoryAdapter maps search history entries onto /search-history
func NewSearchHistoryAdapter(client Doer) Adapter {
	return newResource(models.EntitySearchHistory, "/search-history", client, func(payload json.RawMessage, partial bool) error {
		var s models.SearchHistoryEntry
		if err := decodeStrict(payload, &s); err != nil {
			return err
		}
		if partial {
			return nil
		}
		return s.Validate()
	})
}
