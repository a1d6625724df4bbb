package adapter

import (
	"encoding/json"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// NewLOIAdapter maps letters of intent onto /lois
func NewLOIAdapter(client Doer) Adapter {
	return newResource(models.EntityLOI, "/lois", client, func(payload json.RawMessage, partial bool) error {
		var l models.LetterOfIntent
		if err := decodeStrict(payload, &l); err != nil {
			return err
		}
		if partial {
			return nil
		}
		return l.Validate()
	})
}
