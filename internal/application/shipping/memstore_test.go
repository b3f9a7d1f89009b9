package shipping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
)

// memStore is an in-memory entity store shared by the four writable
// repositories. Inserts can be delayed or failed per code to simulate
// variable store latency.
type memStore struct {
	mu     sync.Mutex
	nextID uint32

	shipments  map[uint32]shipping.Shipment
	dewars     map[uint32]shipping.Dewar
	containers map[uint32]shipping.Container
	samples    map[uint32]shipping.Sample

	// code -> generated id, for mapping results back to inputs
	idsByCode map[string]uint32

	inserts map[string]int
	finds   int

	delay      func(code string) time.Duration
	fail       func(entity, code string) error
	hideOnRead bool
	readErr    error

	causalityViolations []string
}

func newMemStore() *memStore {
	return &memStore{
		shipments:  make(map[uint32]shipping.Shipment),
		dewars:     make(map[uint32]shipping.Dewar),
		containers: make(map[uint32]shipping.Container),
		samples:    make(map[uint32]shipping.Sample),
		idsByCode:  make(map[string]uint32),
		inserts:    make(map[string]int),
	}
}

func (m *memStore) before(entity, code string) error {
	if m.delay != nil {
		time.Sleep(m.delay(code))
	}
	if m.fail != nil {
		return m.fail(entity, code)
	}
	return nil
}

func (m *memStore) allocate(entity, code string) uint32 {
	m.nextID++
	m.inserts[entity]++
	if code != "" {
		m.idsByCode[code] = m.nextID
	}
	return m.nextID
}

func (m *memStore) insertCount(entity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts[entity]
}

func (m *memStore) totalInserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.inserts {
		total += n
	}
	return total
}

func (m *memStore) idOf(code string) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idsByCode[code]
}

func (m *memStore) violation(format string, args ...any) {
	m.causalityViolations = append(m.causalityViolations, fmt.Sprintf(format, args...))
}

func (m *memStore) repos() (memShipments, memDewars, memContainers, memSamples) {
	return memShipments{m}, memDewars{m}, memContainers{m}, memSamples{m}
}

type memShipments struct{ *memStore }

func (r memShipments) Insert(ctx context.Context, s *shipping.Shipment) (uint32, error) {
	if err := r.before("shipment", ""); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocate("shipment", "")
	stored := s.Clone()
	stored.ID = id
	stored.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.shipments[id] = stored
	return id, nil
}

func (r memShipments) FindByID(ctx context.Context, id uint32) (*shipping.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.readErr != nil {
		return nil, r.readErr
	}
	s, ok := r.shipments[id]
	if !ok || r.hideOnRead {
		return nil, shared.ErrNotFound
	}
	out := s.Clone()
	return &out, nil
}

func (r memShipments) FindAll(ctx context.Context, proposalID *uint32) ([]shipping.Shipment, error) {
	return nil, nil
}

type memDewars struct{ *memStore }

func (r memDewars) Insert(ctx context.Context, d *shipping.Dewar) (uint32, error) {
	if err := r.before("dewar", d.Code); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shipments[*d.ShipmentID]; !ok {
		r.violation("dewar %s inserted before shipment %d", d.Code, *d.ShipmentID)
	}
	id := r.allocate("dewar", d.Code)
	stored := *d
	stored.ID = id
	r.dewars[id] = stored
	return id, nil
}

func (r memDewars) FindByID(ctx context.Context, id uint32) (*shipping.Dewar, error) {
	return nil, shared.ErrNotFound
}

func (r memDewars) FindAll(ctx context.Context, shipmentID *uint32) ([]shipping.Dewar, error) {
	return nil, nil
}

type memContainers struct{ *memStore }

func (r memContainers) Insert(ctx context.Context, c *shipping.Container) (uint32, error) {
	if err := r.before("container", c.Code); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dewars[c.DewarID]; !ok {
		r.violation("container %s inserted before dewar %d", c.Code, c.DewarID)
	}
	id := r.allocate("container", c.Code)
	stored := *c
	stored.ID = id
	r.containers[id] = stored
	return id, nil
}

func (r memContainers) FindByID(ctx context.Context, id uint32) (*shipping.Container, error) {
	return nil, shared.ErrNotFound
}

func (r memContainers) FindAll(ctx context.Context, dewarID *uint32, containerType *string) ([]shipping.Container, error) {
	return nil, nil
}

type memSamples struct{ *memStore }

func (r memSamples) Insert(ctx context.Context, s *shipping.Sample) (uint32, error) {
	if err := r.before("sample", s.Code); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[s.ContainerID]; !ok {
		r.violation("sample %s inserted before container %d", s.Code, s.ContainerID)
	}
	id := r.allocate("sample", s.Code)
	stored := *s
	stored.ID = id
	r.samples[id] = stored
	return id, nil
}

func (r memSamples) FindByID(ctx context.Context, id uint32) (*shipping.Sample, error) {
	return nil, shared.ErrNotFound
}

func (r memSamples) FindAll(ctx context.Context, containerID *uint32) ([]shipping.Sample, error) {
	return nil, nil
}
