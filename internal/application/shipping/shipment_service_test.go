package shipping

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/pprof"
	"sync"
	"testing"
	"time"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newServiceWithStore(store *memStore, publisher shared.EventSink[*shipping.ShipmentEvent]) *ShipmentService {
	shipments, dewars, containers, samples := store.repos()
	return NewShipmentService(shipments, dewars, containers, samples, publisher, nil)
}

func newPublisher() *recordingPublisher {
	p := new(recordingPublisher)
	p.On("Publish", mock.Anything).Return()
	return p
}

func TestShipmentService_Create_TwoDewarScenario(t *testing.T) {
	store := newMemStore()
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	req := CreateShipmentRequest{
		ProposalID: 3,
		Name:       strPtr("beamtime-1"),
		Dewars: []DewarInput{
			{Code: "DW-A", Containers: []ContainerInput{{Code: "PK-A"}}},
			{Code: "DW-B", Containers: []ContainerInput{{Code: "PK-B"}}},
		},
	}

	resp, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.insertCount("shipment"))
	assert.Equal(t, 2, store.insertCount("dewar"))
	assert.Equal(t, 2, store.insertCount("container"))
	assert.Equal(t, 0, store.insertCount("sample"))
	assert.Equal(t, 1, store.finds)

	events := publisher.events()
	require.Len(t, events, 1)
	assert.Equal(t, shipping.MutationCreated, events[0].Mutation)
	assert.Equal(t, resp.Shipment.ID, events[0].Shipment.ID)
	assert.Equal(t, "beamtime-1", *events[0].Shipment.Name)
	assert.False(t, events[0].Shipment.CreatedAt.IsZero(), "event carries the canonical re-read row")

	assert.Equal(t, resp.Shipment.ID, resp.Tree.ID)
	require.Len(t, resp.Tree.Children, 2)
	assert.Equal(t, store.idOf("DW-A"), resp.Tree.Children[0].ID)
	assert.Equal(t, store.idOf("DW-B"), resp.Tree.Children[1].ID)
	assert.Equal(t, store.idOf("PK-A"), resp.Tree.Children[0].Children[0].ID)
	assert.Equal(t, store.idOf("PK-B"), resp.Tree.Children[1].Children[0].ID)
	assert.Empty(t, store.causalityViolations)
}

func TestShipmentService_Create_PreservesShapeUnderVariableLatency(t *testing.T) {
	store := newMemStore()
	store.delay = func(code string) time.Duration {
		return time.Duration(rand.IntN(4)) * time.Millisecond
	}
	svc := newServiceWithStore(store, newPublisher())

	req := CreateShipmentRequest{ProposalID: 1}
	for d := range 3 {
		dewar := DewarInput{Code: fmt.Sprintf("D%d", d)}
		for c := range d + 1 {
			container := ContainerInput{Code: fmt.Sprintf("D%d-C%d", d, c)}
			for s := range c + 2 {
				container.Samples = append(container.Samples, SampleInput{Code: fmt.Sprintf("D%d-C%d-S%d", d, c, s)})
			}
			dewar.Containers = append(dewar.Containers, container)
		}
		req.Dewars = append(req.Dewars, dewar)
	}

	resp, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Tree.Children, len(req.Dewars))
	for d, dewar := range req.Dewars {
		dr := resp.Tree.Children[d]
		assert.Equal(t, store.idOf(dewar.Code), dr.ID)
		require.Len(t, dr.Children, len(dewar.Containers))
		for c, container := range dewar.Containers {
			cr := dr.Children[c]
			assert.Equal(t, store.idOf(container.Code), cr.ID)
			require.Len(t, cr.Children, len(container.Samples))
			for s, sample := range container.Samples {
				assert.Equal(t, store.idOf(sample.Code), cr.Children[s].ID)
				assert.NotNil(t, cr.Children[s].Children)
			}
		}
	}
	assert.Empty(t, store.causalityViolations)
}

func TestShipmentService_Create_EmptyTree(t *testing.T) {
	store := newMemStore()
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	resp, err := svc.Create(context.Background(), CreateShipmentRequest{ProposalID: 1})
	require.NoError(t, err)

	assert.NotNil(t, resp.Tree.Children)
	assert.Empty(t, resp.Tree.Children)
	assert.Equal(t, 1, store.totalInserts())
	assert.Len(t, publisher.events(), 1)
}

func TestShipmentService_Create_ChildFailure(t *testing.T) {
	store := newMemStore()
	storeErr := errors.New("constraint violation")
	store.delay = func(code string) time.Duration {
		switch code {
		case "C3":
			return 0
		case "C2":
			return 5 * time.Millisecond
		}
		return 10 * time.Millisecond
	}
	store.fail = func(entity, code string) error {
		if code == "C2" {
			return storeErr
		}
		return nil
	}
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	req := CreateShipmentRequest{
		ProposalID: 1,
		Dewars:     []DewarInput{{Code: "C0"}, {Code: "C1"}, {Code: "C2"}, {Code: "C3"}},
	}

	resp, err := svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, resp)
	var pe *shared.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Dewar", pe.Entity)
	assert.ErrorIs(t, err, storeErr)

	assert.Empty(t, publisher.events())
	assert.Zero(t, store.finds, "no read-back after a failed tree")
	// no rollback: the shipment and the successful siblings stay
	assert.Equal(t, 1, store.insertCount("shipment"))
	assert.Equal(t, 3, store.insertCount("dewar"))
}

func TestShipmentService_Create_DeepFailurePublishesNothing(t *testing.T) {
	store := newMemStore()
	store.fail = func(entity, code string) error {
		if entity == "sample" && code == "S-bad" {
			return errors.New("disk full")
		}
		return nil
	}
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	req := CreateShipmentRequest{
		ProposalID: 1,
		Dewars: []DewarInput{{
			Code: "D",
			Containers: []ContainerInput{{
				Code:    "C",
				Samples: []SampleInput{{Code: "S-ok"}, {Code: "S-bad"}},
			}},
		}},
	}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, shared.CodePersistence, shared.ErrorCode(err))
	assert.Empty(t, publisher.events())
}

func TestShipmentService_Create_ShipmentInsertFails(t *testing.T) {
	shipments := new(MockShipmentRepository)
	dewars := new(MockDewarRepository)
	publisher := newPublisher()
	svc := NewShipmentService(shipments, dewars, new(MockContainerRepository), new(MockSampleRepository), publisher, nil)

	shipments.On("Insert", mock.Anything, mock.AnythingOfType("*shipping.Shipment")).
		Return(uint32(0), errors.New("connection refused"))

	_, err := svc.Create(context.Background(), CreateShipmentRequest{
		ProposalID: 1,
		Dewars:     []DewarInput{{Code: "D1"}},
	})

	var pe *shared.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert", pe.Op)
	assert.Equal(t, shipping.AggregateTypeShipment, pe.Entity)
	dewars.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.events())
	shipments.AssertExpectations(t)
}

func TestShipmentService_Create_ReadBackMissing(t *testing.T) {
	store := newMemStore()
	store.hideOnRead = true
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	_, err := svc.Create(context.Background(), CreateShipmentRequest{ProposalID: 1})

	var ise *shared.InconsistentStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, uint32(1), ise.ID)
	assert.Equal(t, shipping.AggregateTypeShipment, ise.Entity)
	assert.Empty(t, publisher.events())
}

func TestShipmentService_Create_ReadBackFails(t *testing.T) {
	store := newMemStore()
	store.readErr = shared.NewPersistenceError("find", "Shipment", errors.New("timeout"))
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	_, err := svc.Create(context.Background(), CreateShipmentRequest{ProposalID: 1})

	var pe *shared.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "find", pe.Op)
	assert.Empty(t, publisher.events())
}

func TestShipmentService_Create_InvalidRequestWritesNothing(t *testing.T) {
	store := newMemStore()
	publisher := newPublisher()
	svc := newServiceWithStore(store, publisher)

	_, err := svc.Create(context.Background(), CreateShipmentRequest{
		ProposalID: 1,
		Dewars:     []DewarInput{{Code: "D1", Containers: []ContainerInput{{Code: "C1", Samples: []SampleInput{{Code: " "}}}}}},
	})
	require.Error(t, err)
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))

	_, err = svc.Create(context.Background(), CreateShipmentRequest{})
	require.Error(t, err)

	assert.Zero(t, store.totalInserts())
	assert.Empty(t, publisher.events())
}

func TestShipmentService_Create_SubscriberSeesCreatesInPublishOrder(t *testing.T) {
	store := newMemStore()
	broker := event.NewBroker[*shipping.ShipmentEvent](16)
	svc := newServiceWithStore(store, broker)

	sub := broker.Subscribe()
	defer sub.Close()

	first, err := svc.Create(context.Background(), CreateShipmentRequest{ProposalID: 1, Name: strPtr("first")})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateShipmentRequest{ProposalID: 1, Name: strPtr("second")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Shipment.ID, ev.Shipment.ID)

	ev, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Shipment.ID, ev.Shipment.ID)

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err = sub.Recv(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "exactly one event per create")
}

func TestShipmentService_Create_FailedCreateInvisibleToSubscriber(t *testing.T) {
	store := newMemStore()
	store.fail = func(entity, code string) error {
		if entity == "container" {
			return errors.New("boom")
		}
		return nil
	}
	broker := event.NewBroker[*shipping.ShipmentEvent](16)
	svc := newServiceWithStore(store, broker)

	sub := broker.Subscribe()
	defer sub.Close()

	_, err := svc.Create(context.Background(), CreateShipmentRequest{
		ProposalID: 1,
		Dewars:     []DewarInput{{Code: "D", Containers: []ContainerInput{{Code: "C"}}}},
	})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// labelRecordingSamples records the profiling labels each sample insert runs under
type labelRecordingSamples struct {
	memSamples
	mu     sync.Mutex
	labels []map[string]string
}

func (r *labelRecordingSamples) Insert(ctx context.Context, s *shipping.Sample) (uint32, error) {
	seen := map[string]string{}
	pprof.ForLabels(ctx, func(key, value string) bool {
		seen[key] = value
		return true
	})
	r.mu.Lock()
	r.labels = append(r.labels, seen)
	r.mu.Unlock()
	return r.memSamples.Insert(ctx, s)
}

func TestShipmentService_Create_LabelsInsertsForProfiling(t *testing.T) {
	store := newMemStore()
	shipments, dewars, containers, samples := store.repos()
	recording := &labelRecordingSamples{memSamples: samples}
	svc := NewShipmentService(shipments, dewars, containers, recording, newPublisher(), nil)

	_, err := svc.Create(context.Background(), CreateShipmentRequest{
		ProposalID: 1,
		Dewars: []DewarInput{{Code: "D", Containers: []ContainerInput{
			{Code: "C", Samples: []SampleInput{{Code: "S1"}, {Code: "S2"}}},
		}}},
	})
	require.NoError(t, err)

	require.Len(t, recording.labels, 2)
	for _, labels := range recording.labels {
		assert.Equal(t, map[string]string{"operation": "shipment.create", "entity": "sample"}, labels)
	}
}
