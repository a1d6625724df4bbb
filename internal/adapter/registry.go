package adapter

import (
	"fmt"
	"time"

	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
	"github.com/Kamar-Folarin/propsync/internal/models"
)

// Registry holds one adapter per entity type
type Registry struct {
	savedProperties Adapter
	searchHistory   Adapter
	documents       Adapter
	lois            Adapter
}

// NewRegistry builds the adapters for every entity type over client
func NewRegistry(client Doer) *Registry {
	return &Registry{
		savedProperties: NewSavedPropertyAdapter(client),
		searchHistory:   NewSearchHistoryAdapter(client),
		documents:       NewDocumentAdapter(client),
		lois:            NewLOIAdapter(client),
	}
}

// For returns the adapter for entityType. An unknown type is a terminal
// error: no retry can make it succeed.
func (r *Registry) For(entityType models.EntityType) (Adapter, error) {
	switch entityType {
	case models.EntitySavedProperty:
		return r.savedProperties, nil
	case models.EntitySearchHistory:
		return r.searchHistory, nil
	case models.EntityDocument:
		return r.documents, nil
	case models.EntityLOI:
		return r.lois, nil
	default:
		return nil, apperrors.NewTerminalError(fmt.Sprintf("no adapter for entity type %q", entityType), nil)
	}
}

func newResource(entityType models.EntityType, path string, client Doer, validate validateFunc) *resource {
	return &resource{
		entityType: entityType,
		path:       path,
		client:     client,
		validate:   validate,
		now:        time.Now,
	}
}
