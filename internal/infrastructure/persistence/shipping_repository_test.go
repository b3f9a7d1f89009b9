package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupShippingTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.ShipmentModel{},
		&models.DewarModel{},
		&models.ContainerModel{},
		&models.SampleModel{},
		&models.ProposalModel{},
		&models.PersonModel{},
	)
	require.NoError(t, err)

	return db
}

func TestShippingRepositories_InsertAndQueryTree(t *testing.T) {
	db := setupShippingTestDB(t)
	ctx := context.Background()

	shipments := NewGormShipmentRepository(db)
	dewars := NewGormDewarRepository(db)
	containers := NewGormContainerRepository(db)
	samples := NewGormSampleRepository(db)

	shipmentID, err := shipments.Insert(ctx, &shipping.Shipment{
		ProposalID: 11,
		Name:       strPtr("Run 1"),
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NotZero(t, shipmentID)

	var dewarIDs []uint32
	for _, code := range []string{"DW-1", "DW-2"} {
		id, err := dewars.Insert(ctx, &shipping.Dewar{ShipmentID: &shipmentID, Code: code})
		require.NoError(t, err)
		dewarIDs = append(dewarIDs, id)
	}
	assert.Less(t, dewarIDs[0], dewarIDs[1])

	puckID, err := containers.Insert(ctx, &shipping.Container{DewarID: dewarIDs[0], Code: "P-1", ContainerType: shipping.ContainerTypePuck})
	require.NoError(t, err)
	_, err = containers.Insert(ctx, &shipping.Container{DewarID: dewarIDs[1], Code: "C-1", ContainerType: "Cane"})
	require.NoError(t, err)

	for _, code := range []string{"S-1", "S-2", "S-3"} {
		_, err := samples.Insert(ctx, &shipping.Sample{ContainerID: puckID, Code: code})
		require.NoError(t, err)
	}

	t.Run("reads back the shipment", func(t *testing.T) {
		got, err := shipments.FindByID(ctx, shipmentID)
		require.NoError(t, err)
		assert.Equal(t, uint32(11), got.ProposalID)
		require.NotNil(t, got.Name)
		assert.Equal(t, "Run 1", *got.Name)
		assert.Nil(t, got.Comments)
	})

	t.Run("lists dewars for the shipment", func(t *testing.T) {
		got, err := dewars.FindAll(ctx, &shipmentID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "DW-1", got[0].Code)
		assert.Equal(t, "DW-2", got[1].Code)
	})

	t.Run("filters containers by type", func(t *testing.T) {
		puck := shipping.ContainerTypePuck
		got, err := containers.FindAll(ctx, nil, &puck)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, puckID, got[0].ID)

		all, err := containers.FindAll(ctx, nil, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("lists samples for the puck", func(t *testing.T) {
		got, err := samples.FindAll(ctx, &puckID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, s := range got {
			assert.Equal(t, puckID, s.ContainerID)
		}

		sample, err := samples.FindByID(ctx, got[2].ID)
		require.NoError(t, err)
		assert.Equal(t, "S-3", sample.Code)
	})

	t.Run("missing ids map to not found", func(t *testing.T) {
		_, err := shipments.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = dewars.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = containers.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = samples.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProposalAndPersonRepositories(t *testing.T) {
	db := setupShippingTestDB(t)
	ctx := context.Background()

	open := string(shipping.ProposalStateOpen)
	require.NoError(t, db.Create(&models.PersonModel{GivenName: strPtr("Ada"), FamilyName: strPtr("Lovelace")}).Error)
	require.NoError(t, db.Create(&models.ProposalModel{PersonID: 1, Title: strPtr("Crystals"), Code: strPtr("mx"), Number: strPtr("1234"), State: &open}).Error)
	require.NoError(t, db.Create(&models.ProposalModel{PersonID: 1, Code: strPtr("cm"), Number: strPtr("7")}).Error)

	proposals := NewGormProposalRepository(db)
	people := NewGormPersonRepository(db)

	t.Run("finds proposal with reference and state", func(t *testing.T) {
		p, err := proposals.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "mx1234", p.Reference())
		assert.True(t, p.IsOpen())
	})

	t.Run("filters proposals by id", func(t *testing.T) {
		id := uint32(2)
		got, err := proposals.FindAll(ctx, &id)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "cm7", got[0].Reference())

		all, err := proposals.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("finds person", func(t *testing.T) {
		person, err := people.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", person.DisplayName())

		all, err := people.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing rows map to not found", func(t *testing.T) {
		_, err := proposals.FindByID(ctx, 77)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = people.FindByID(ctx, 77)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
