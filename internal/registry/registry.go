package registry

import (
	"sort"
	"sync"
	"time"

	"featmark/internal/types"
)

// DocumentRegistry manages all discovered guide sections
type DocumentRegistry struct {
	sections  map[string]*types.SectionInfo
	documents map[string]*types.DocumentInfo
	mutex     sync.RWMutex
	watchers  []chan types.SectionEvent
}

// NewDocumentRegistry creates a new document registry
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		sections:  make(map[string]*types.SectionInfo),
		documents: make(map[string]*types.DocumentInfo),
		watchers:  make([]chan types.SectionEvent, 0),
	}
}

// Register adds or updates a section in the registry
func (r *DocumentRegistry) Register(section *types.SectionInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := types.EventTypeAdded
	if _, exists := r.sections[section.Anchor]; exists {
		eventType = types.EventTypeUpdated
	}

	r.sections[section.Anchor] = section

	// Notify watchers
	event := types.SectionEvent{
		Type:      eventType,
		Section:   section,
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// RegisterDocument records document-level metadata for a scanned file
func (r *DocumentRegistry) RegisterDocument(doc *types.DocumentInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.documents[doc.FilePath] = doc
}

// Get retrieves a section by anchor
func (r *DocumentRegistry) Get(anchor string) (*types.SectionInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	section, exists := r.sections[anchor]
	return section, exists
}

// GetByNumber retrieves a section by its heading number
func (r *DocumentRegistry) GetByNumber(number int) (*types.SectionInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, section := range r.sections {
		if section.Number == number {
			return section, true
		}
	}
	return nil, false
}

// GetAll returns all registered sections keyed by anchor
func (r *DocumentRegistry) GetAll() map[string]*types.SectionInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*types.SectionInfo)
	for anchor, section := range r.sections {
		result[anchor] = section
	}
	return result
}

// GetOrdered returns all sections sorted by file path, then section number
func (r *DocumentRegistry) GetOrdered() []*types.SectionInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.SectionInfo, 0, len(r.sections))
	for _, section := range r.sections {
		result = append(result, section)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FilePath != result[j].FilePath {
			return result[i].FilePath < result[j].FilePath
		}
		return result[i].Number < result[j].Number
	})
	return result
}

// SectionsByFile returns the sections of one document ordered by number
func (r *DocumentRegistry) SectionsByFile(path string) []*types.SectionInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*types.SectionInfo
	for _, section := range r.sections {
		if section.FilePath == path {
			result = append(result, section)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})
	return result
}

// GetDocument retrieves document metadata by file path
func (r *DocumentRegistry) GetDocument(path string) (*types.DocumentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	doc, exists := r.documents[path]
	return doc, exists
}

// Documents returns all registered documents sorted by file path
func (r *DocumentRegistry) Documents() []*types.DocumentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.DocumentInfo, 0, len(r.documents))
	for _, doc := range r.documents {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FilePath < result[j].FilePath
	})
	return result
}

// Remove removes a section from the registry
func (r *DocumentRegistry) Remove(anchor string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	section, exists := r.sections[anchor]
	if !exists {
		return
	}

	delete(r.sections, anchor)
	r.notifyRemoval(section)
}

// RemoveFile removes a document and all of its sections, notifying watchers
// for each dropped section. Used when a watched file is deleted.
func (r *DocumentRegistry) RemoveFile(path string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.documents, path)

	for anchor, section := range r.sections {
		if section.FilePath == path {
			delete(r.sections, anchor)
			r.notifyRemoval(section)
		}
	}
}

// notifyRemoval broadcasts a removal event. Caller must hold the write lock.
func (r *DocumentRegistry) notifyRemoval(section *types.SectionInfo) {
	event := types.SectionEvent{
		Type:      types.EventTypeRemoved,
		Section:   section,
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives section events
func (r *DocumentRegistry) Watch() <-chan types.SectionEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan types.SectionEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *DocumentRegistry) UnWatch(ch <-chan types.SectionEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered sections
func (r *DocumentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.sections)
}

// DocumentCount returns the number of registered documents
func (r *DocumentRegistry) DocumentCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.documents)
}
