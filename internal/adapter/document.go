package adapter

import (
	"encoding/json"

	"github.com/Kamar-Folarin/propsync/internal/models"
)

// NewDocumentAdapter maps document metadata onto /documents. File bodies are
// uploaded separately and never pass through the queue.
func NewDocumentAdapter(client Doer) Adapter {
	return newResource(models.EntityDocument, "/documents", client, func(payload json.RawMessage, partial bool) error {
		var d models.Document
		if err := decodeStrict(payload, &d); err != nil {
			return err
		}
		if partial {
			return nil
		}
		return d.Validate()
	})
}
