package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"featmark/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewDocumentRegistry(t *testing.T) {
	registry := NewDocumentRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.sections)
	assert.NotNil(t, registry.documents)
	assert.NotNil(t, registry.watchers)
	assert.Equal(t, 0, len(registry.sections))
	assert.Equal(t, 0, len(registry.watchers))
}

func TestDocumentRegistry_Register(t *testing.T) {
	registry := NewDocumentRegistry()

	section := &types.SectionInfo{
		Number:      3,
		Title:       "API Routes",
		Anchor:      "3-api-routes",
		FilePath:    "/guides/FEATURES.md",
		Explanation: "API routes let a project ship backend endpoints alongside pages.",
	}

	registry.Register(section)

	// Test section was added
	retrieved, exists := registry.Get("3-api-routes")
	assert.True(t, exists)
	assert.Equal(t, section, retrieved)

	// Test count
	assert.Equal(t, 1, registry.Count())

	// Test GetAll
	all := registry.GetAll()
	assert.Len(t, all, 1)
	assert.Equal(t, section, all["3-api-routes"])
}

func TestDocumentRegistry_Update(t *testing.T) {
	registry := NewDocumentRegistry()

	section := &types.SectionInfo{
		Number:   3,
		Title:    "API Routes",
		Anchor:   "3-api-routes",
		FilePath: "/guides/FEATURES.md",
	}
	registry.Register(section)

	// Update with a snippet attached
	updated := &types.SectionInfo{
		Number:   3,
		Title:    "API Routes",
		Anchor:   "3-api-routes",
		FilePath: "/guides/FEATURES.md",
		Snippet: &types.SnippetInfo{
			Language: "javascript",
			Code:     "export default function handler(req, res) {}\n",
			Closed:   true,
		},
	}
	registry.Register(updated)

	retrieved, exists := registry.Get("3-api-routes")
	assert.True(t, exists)
	assert.Equal(t, updated, retrieved)
	assert.True(t, retrieved.HasSnippet())

	// Count should still be 1
	assert.Equal(t, 1, registry.Count())
}

func TestDocumentRegistry_Remove(t *testing.T) {
	registry := NewDocumentRegistry()

	section := &types.SectionInfo{
		Number:   1,
		Title:    "File-System Based Routing",
		Anchor:   "1-file-system-based-routing",
		FilePath: "/guides/FEATURES.md",
	}
	registry.Register(section)

	_, exists := registry.Get("1-file-system-based-routing")
	assert.True(t, exists)
	assert.Equal(t, 1, registry.Count())

	registry.Remove("1-file-system-based-routing")

	_, exists = registry.Get("1-file-system-based-routing")
	assert.False(t, exists)
	assert.Equal(t, 0, registry.Count())

	all := registry.GetAll()
	assert.Len(t, all, 0)
}

func TestDocumentRegistry_RemoveFile(t *testing.T) {
	registry := NewDocumentRegistry()

	section1 := &types.SectionInfo{
		Number:   1,
		Title:    "Routing",
		Anchor:   "1-routing",
		FilePath: "/guides/a.md",
	}
	section2 := &types.SectionInfo{
		Number:   1,
		Title:    "Rendering",
		Anchor:   "1-rendering",
		FilePath: "/guides/b.md",
	}
	section3 := &types.SectionInfo{
		Number:   2,
		Title:    "Middleware",
		Anchor:   "2-middleware",
		FilePath: "/guides/a.md",
	}

	registry.Register(section1)
	registry.Register(section2)
	registry.Register(section3)
	registry.RegisterDocument(&types.DocumentInfo{FilePath: "/guides/a.md", Title: "Guide A"})

	assert.Equal(t, 3, registry.Count())
	assert.Equal(t, 1, registry.DocumentCount())

	registry.RemoveFile("/guides/a.md")

	// Both sections from a.md should be removed
	assert.Equal(t, 1, registry.Count())
	assert.Equal(t, 0, registry.DocumentCount())

	_, exists := registry.Get("1-routing")
	assert.False(t, exists)

	_, exists = registry.Get("2-middleware")
	assert.False(t, exists)

	// Section from b.md should still exist
	_, exists = registry.Get("1-rendering")
	assert.True(t, exists)
}

func TestDocumentRegistry_GetOrdered(t *testing.T) {
	registry := NewDocumentRegistry()

	// Register out of order
	for _, n := range []int{4, 1, 3, 2} {
		registry.Register(&types.SectionInfo{
			Number:   n,
			Title:    fmt.Sprintf("Feature %d", n),
			Anchor:   fmt.Sprintf("%d-feature-%d", n, n),
			FilePath: "/guides/FEATURES.md",
		})
	}

	ordered := registry.GetOrdered()
	assert.Len(t, ordered, 4)
	for i, section := range ordered {
		assert.Equal(t, i+1, section.Number)
	}
}

func TestDocumentRegistry_GetByNumber(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.Register(&types.SectionInfo{
		Number:   7,
		Title:    "Middleware",
		Anchor:   "7-middleware",
		FilePath: "/guides/FEATURES.md",
	})

	section, exists := registry.GetByNumber(7)
	assert.True(t, exists)
	assert.Equal(t, "Middleware", section.Title)

	_, exists = registry.GetByNumber(8)
	assert.False(t, exists)
}

func TestDocumentRegistry_Watch(t *testing.T) {
	registry := NewDocumentRegistry()

	watcher := registry.Watch()
	assert.NotNil(t, watcher)

	section := &types.SectionInfo{
		Number:   1,
		Title:    "Routing",
		Anchor:   "1-routing",
		FilePath: "/guides/FEATURES.md",
	}

	// Register in goroutine to avoid blocking
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(section)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeAdded, event.Type)
		assert.Equal(t, section, event.Section)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected to receive section added event")
	}
}

func TestDocumentRegistry_UnWatch(t *testing.T) {
	registry := NewDocumentRegistry()

	watcher1 := registry.Watch()
	watcher2 := registry.Watch()

	assert.Len(t, registry.watchers, 2)

	registry.UnWatch(watcher1)

	assert.Len(t, registry.watchers, 1)

	// Verify the channel is closed
	select {
	case _, ok := <-watcher1:
		assert.False(t, ok, "Channel should be closed")
	case <-time.After(10 * time.Millisecond):
		t.Fatal("Channel should be closed immediately")
	}

	// Verify the other watcher is still active
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(&types.SectionInfo{
			Number:   1,
			Title:    "Routing",
			Anchor:   "1-routing",
			FilePath: "/guides/FEATURES.md",
		})
	}()

	select {
	case event := <-watcher2:
		assert.Equal(t, types.EventTypeAdded, event.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Second watcher should still receive events")
	}
}

func TestDocumentRegistry_EventTypes(t *testing.T) {
	registry := NewDocumentRegistry()
	watcher := registry.Watch()

	section := &types.SectionInfo{
		Number:   2,
		Title:    "Dynamic Routing",
		Anchor:   "2-dynamic-routing",
		FilePath: "/guides/FEATURES.md",
	}

	// Test Add event
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(section)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeAdded, event.Type)
		assert.Equal(t, section, event.Section)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected section added event")
	}

	// Test Update event
	updated := &types.SectionInfo{
		Number:      2,
		Title:       "Dynamic Routing",
		Anchor:      "2-dynamic-routing",
		FilePath:    "/guides/FEATURES.md",
		Explanation: "Bracketed file names become route parameters.",
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Register(updated)
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeUpdated, event.Type)
		assert.Equal(t, updated, event.Section)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected section updated event")
	}

	// Test Remove event
	go func() {
		time.Sleep(10 * time.Millisecond)
		registry.Remove("2-dynamic-routing")
	}()

	select {
	case event := <-watcher:
		assert.Equal(t, types.EventTypeRemoved, event.Type)
		assert.Equal(t, "2-dynamic-routing", event.Section.Anchor)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected section removed event")
	}
}

func TestDocumentRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewDocumentRegistry()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(index int) {
			registry.Register(&types.SectionInfo{
				Number:   index + 1,
				Title:    fmt.Sprintf("Feature %d", index+1),
				Anchor:   fmt.Sprintf("%d-feature-%d", index+1, index+1),
				FilePath: "/guides/FEATURES.md",
			})
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, registry.Count())

	// Test concurrent reads
	for i := 0; i < 10; i++ {
		go func(index int) {
			anchor := fmt.Sprintf("%d-feature-%d", index+1, index+1)
			_, exists := registry.Get(anchor)
			assert.True(t, exists)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestDocumentRegistry_Documents(t *testing.T) {
	registry := NewDocumentRegistry()

	registry.RegisterDocument(&types.DocumentInfo{
		Title:        "Next.js Features",
		TitleAnchor:  "nextjs-features",
		FilePath:     "/guides/FEATURES.md",
		SectionCount: 26,
	})

	doc, exists := registry.GetDocument("/guides/FEATURES.md")
	assert.True(t, exists)
	assert.Equal(t, "Next.js Features", doc.Title)
	assert.Equal(t, 26, doc.SectionCount)

	docs := registry.Documents()
	assert.Len(t, docs, 1)
}
