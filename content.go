package helio

import (
	"sync"

	"github.com/google/uuid"
)

// EntityData pairs a scene entity with the components a content block
// attaches to it. Components are held as any; listeners type-switch on what
// they care about.
type EntityData struct {
	Entity     *Entity
	Components []any
}

// ContentBlock is one batch of loaded or unloaded content dispatched to
// listeners as a unit.
type ContentBlock struct {
	ID       uuid.UUID
	Entities []*EntityData
}

func NewContentBlock() *ContentBlock {
	return &ContentBlock{ID: uuid.New()}
}

func (b *ContentBlock) AddEntity(e *Entity, components ...any) *EntityData {
	data := &EntityData{Entity: e, Components: components}
	b.Entities = append(b.Entities, data)
	return data
}

// ContentListener receives load/unload notifications. Callbacks may arrive
// from a loader thread concurrent with the render loop; listeners are
// responsible for their own locking.
type ContentListener interface {
	OnContentLoaded(block *ContentBlock)
	OnContentUnloaded(block *ContentBlock)
}

// ContentManager broadcasts content block changes to registered listeners.
type ContentManager struct {
	mu        sync.Mutex
	listeners []ContentListener
}

func NewContentManager() *ContentManager {
	return &ContentManager{}
}

func (cm *ContentManager) AddListener(l ContentListener) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.listeners = append(cm.listeners, l)
}

// RemoveListener unregisters a listener. Removing a listener that was never
// added is a no-op.
func (cm *ContentManager) RemoveListener(l ContentListener) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for i, registered := range cm.listeners {
		if registered == l {
			cm.listeners = append(cm.listeners[:i], cm.listeners[i+1:]...)
			return
		}
	}
}

func (cm *ContentManager) snapshot() []ContentListener {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]ContentListener, len(cm.listeners))
	copy(out, cm.listeners)
	return out
}

// Load marks the block's entities resident and notifies listeners.
func (cm *ContentManager) Load(block *ContentBlock) {
	for _, l := range cm.snapshot() {
		l.OnContentLoaded(block)
	}
}

// Unload notifies listeners that the block's entities are leaving the scene.
func (cm *ContentManager) Unload(block *ContentBlock) {
	for _, l := range cm.snapshot() {
		l.OnContentUnloaded(block)
	}
}

// ContentModule installs the ContentManager resource.
type ContentModule struct{}

func (m ContentModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewContentManager())
}
