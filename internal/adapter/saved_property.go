package adapter

import (
	"encoding/json"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// NewSavedPropertyAdapter maps saved properties onto /saved-properties
func NewSavedPropertyAdapter(client Doer) Adapter {
	return newResource(models.EntitySavedProperty, "/saved-properties", client, func(payload json.RawMessage, partial bool) error {
		var p models.SavedProperty
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		if partial {
			return nil
		}
		return p.Validate()
	})
}
