package motionplan

import (
	"sync"

	"openspace/spatialmath"
)

// Obstacle pairs an identifier with the oriented box perceived for it.
type Obstacle struct {
	ID  string
	Box spatialmath.Rect
}

// PerceptionBoundingBox returns the oriented box perceived for the obstacle.
func (o Obstacle) PerceptionBoundingBox() spatialmath.Rect {
	return o.Box
}

// ObstacleSet is a thread-safe indexed collection of obstacles. The planner
// reads a snapshot of the set once per invocation; membership may be mutated
// concurrently between invocations but not during one.
type ObstacleSet struct {
	mu    sync.RWMutex
	order []string
	boxes map[string]spatialmath.Rect
}

// NewObstacleSet instantiates an empty obstacle collection.
func NewObstacleSet() *ObstacleSet {
	return &ObstacleSet{boxes: map[string]spatialmath.Rect{}}
}

// Add inserts an obstacle, replacing any obstacle previously stored under the
// same ID. Insertion order is preserved by Items.
func (s *ObstacleSet) Add(id string, box spatialmath.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boxes[id]; !ok {
		s.order = append(s.order, id)
	}
	s.boxes[id] = box
}

// Remove deletes the obstacle stored under the given ID, if any.
func (s *ObstacleSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boxes[id]; !ok {
		return
	}
	delete(s.boxes, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of obstacles in the set.
func (s *ObstacleSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Items returns a snapshot of the obstacles in insertion order.
func (s *ObstacleSet) Items() []Obstacle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]Obstacle, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, Obstacle{ID: id, Box: s.boxes[id]})
	}
	return items
}
