package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/event"
	"github.com/shipping/backend/internal/infrastructure/persistence"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"github.com/shipping/backend/internal/interfaces/http/dto"
	"github.com/shipping/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testTimeout = 5 * time.Second

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testEnv is the full read/write stack over an in-memory SQLite database
type testEnv struct {
	engine     *gin.Engine
	db         *gorm.DB
	broker     *event.Broker[*shipping.ShipmentEvent]
	handlers   *Handlers
	proposalID uint32
	personID   uint32
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.PersonModel{},
		&models.ProposalModel{},
		&models.ShipmentModel{},
		&models.DewarModel{},
		&models.ContainerModel{},
		&models.SampleModel{},
	))

	person := models.PersonModel{GivenName: strPtr("Rosalind"), FamilyName: strPtr("Franklin"), Title: strPtr("Dr")}
	require.NoError(t, db.Create(&person).Error)
	proposal := models.ProposalModel{
		PersonID: person.ID,
		Title:    strPtr("Lysozyme soak"),
		Code:     strPtr("mx"),
		Number:   strPtr("1234"),
		State:    strPtr(string(shipping.ProposalStateOpen)),
	}
	require.NoError(t, db.Create(&proposal).Error)

	broker := event.NewBroker[*shipping.ShipmentEvent](16)
	t.Cleanup(broker.Close)

	repos := persistence.NewRepositories(db)
	service := shippingapp.NewShipmentService(repos.Shipments, repos.Dewars, repos.Containers, repos.Samples, broker, nil)
	queries := shippingapp.NewQueryService(repos.Shipments, repos.Dewars, repos.Containers, repos.Samples, repos.Proposals, repos.People)
	subscriptions := shippingapp.NewSubscriptionService(broker, nil)

	handlers := &Handlers{
		Shipments: NewShipmentHandler(service, queries),
		Catalog:   NewCatalogHandler(queries),
		Stream:    NewShipmentStreamHandler(subscriptions),
		WS:        NewShipmentWSHandler(subscriptions),
		Health:    NewHealthHandler(stubPinger{}),
	}
	t.Cleanup(handlers.Stream.Stop)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	handlers.Register(engine)

	return &testEnv{
		engine:     engine,
		db:         db,
		broker:     broker,
		handlers:   handlers,
		proposalID: proposal.ID,
		personID:   person.ID,
	}
}

// apiResponse mirrors dto.Response with the payload left raw
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (e *testEnv) createShipment(t *testing.T, req shippingapp.CreateShipmentRequest) shippingapp.CreateShipmentResponse {
	t.Helper()

	w, resp := e.do(t, http.MethodPost, "/api/v1/shipments", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created shippingapp.CreateShipmentResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	return created
}

func sampleRequest(proposalID uint32) shippingapp.CreateShipmentRequest {
	return shippingapp.CreateShipmentRequest{
		ProposalID: proposalID,
		Name:       strPtr("Run 1"),
		Dewars: []shippingapp.DewarInput{
			{
				Code: "DW-1",
				Containers: []shippingapp.ContainerInput{
					{Code: "P-1", Samples: []shippingapp.SampleInput{{Code: "S-1"}, {Code: "S-2"}}},
				},
			},
			{Code: "DW-2"},
		},
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func strPtr(s string) *string { return &s }
