// README: Offline courier state. Each courier's active order and any unsent
// delivery confirmations live in two small JSON files, keyed by courier id,
// so a dead zone never loses a handoff. Nothing here is allowed to fail the
// caller: worst case the courier re-syncs from the server later.
package offline

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

const (
	activeOrderFile = "deliverycity_active_order.json"
	syncQueueFile   = "deliverycity_sync_queue.json"
)

// ConfirmationKind says which verification a queued code belongs to.
type ConfirmationKind string

const (
	KindPickup   ConfirmationKind = "pickup"
	KindDelivery ConfirmationKind = "delivery"
)

// Confirmation is one code captured while offline, waiting for replay.
type Confirmation struct {
	CourierID  types.ID         `json:"courier_id"`
	OrderID    types.ID         `json:"order_id"`
	Code       string           `json:"code"`
	Kind       ConfirmationKind `json:"kind"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Store persists the per-courier active-order slots and the confirmation
// queue under a base directory. Corrupt or missing files read as empty
// state.
type Store struct {
	dir string
	mu  sync.Mutex
	log *slog.Logger
}

func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// SaveActiveOrder mirrors the courier's current order to disk. Each courier
// has their own slot; one courier's assignment never touches another's.
func (s *Store) SaveActiveOrder(courierID types.ID, o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.readSlots()
	slots[courierID] = o
	s.writeFile(activeOrderFile, slots)
}

// ActiveOrder returns the courier's mirrored order, or nil when there is
// none or the file is unreadable.
func (s *Store) ActiveOrder(courierID types.ID) *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSlots()[courierID]
}

// ClearActiveOrder removes the courier's mirror; called once their order
// reaches a terminal state.
func (s *Store) ClearActiveOrder(courierID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.readSlots()
	if _, ok := slots[courierID]; !ok {
		return
	}
	delete(slots, courierID)
	if len(slots) == 0 {
		s.removeFile(activeOrderFile)
		return
	}
	s.writeFile(activeOrderFile, slots)
}

// Enqueue appends a confirmation to the pending queue.
func (s *Store) Enqueue(c Confirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.readQueue()
	queue = append(queue, c)
	s.writeFile(syncQueueFile, queue)
}

// Drain returns the queued confirmations in capture order without removing
// them. The queue is only cleared after a fully successful replay.
func (s *Store) Drain() []Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readQueue()
}

// Pending counts the courier's queued confirmations.
func (s *Store) Pending(courierID types.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.readQueue() {
		if c.CourierID == courierID {
			n++
		}
	}
	return n
}

// ClearQueue drops all queued confirmations.
func (s *Store) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFile(syncQueueFile)
}

func (s *Store) readSlots() map[types.ID]*order.Order {
	slots := make(map[types.ID]*order.Order)
	s.readFile(activeOrderFile, &slots)
	return slots
}

func (s *Store) readQueue() []Confirmation {
	var queue []Confirmation
	if !s.readFile(syncQueueFile, &queue) {
		return nil
	}
	return queue
}

func (s *Store) writeFile(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("offline state marshal failed", "file", name, "error", err)
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.log.Warn("offline state write failed", "file", name, "error", err)
	}
}

// readFile reports whether v was populated. Missing and corrupt files both
// read as empty state; a corrupt file is logged and left for the next write
// to replace.
func (s *Store) readFile(name string, v any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("offline state read failed", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("offline state corrupt, treating as empty", "file", name, "error", err)
		return false
	}
	return true
}

func (s *Store) removeFile(name string) {
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("offline state remove failed", "file", name, "error", err)
	}
}
