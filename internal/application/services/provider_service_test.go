package services

import (
	"context"
	"errors"
	"testing"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	apperrors "github.com/medicapp/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProviderService_CreateAssignsIDAndMirrors(t *testing.T) {
	repo := new(mockProviderRepository)
	index := new(mockProviderIndex)
	service := NewProviderService(repo, index)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Provider")).Return(nil)
	index.On("Index", mock.Anything, mock.AnythingOfType("*entities.Provider")).Return(errors.New("index down"))

	created, err := service.Create(context.Background(), &entities.Provider{Name: "  Clinique Sud ", City: "Nice"})
	require.NoError(t, err, "index faults must not fail the write")

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Clinique Sud", created.Name)
	assert.False(t, created.CreatedAt.IsZero())
	repo.AssertExpectations(t)
	index.AssertExpectations(t)
}

func TestProviderService_CreateValidation(t *testing.T) {
	service := NewProviderService(new(mockProviderRepository), nil)

	_, err := service.Create(context.Background(), &entities.Provider{Name: "  "})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.Create(context.Background(), &entities.Provider{
		Name:     "Hors carte",
		Location: &entities.GeoPoint{Latitude: 95, Longitude: 0},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestProviderService_UpdateKeepsIdentity(t *testing.T) {
	repo := new(mockProviderRepository)
	service := NewProviderService(repo, nil)

	existing := &entities.Provider{ID: "p1", Name: "Ancien"}
	repo.On("GetByID", mock.Anything, "p1").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *entities.Provider) bool {
		return p.ID == "p1" && p.Name == "Nouveau"
	})).Return(nil)

	updated, err := service.Update(context.Background(), "p1", &entities.Provider{ID: "ignored", Name: "Nouveau"})
	require.NoError(t, err)
	assert.Equal(t, "p1", updated.ID)
	repo.AssertExpectations(t)
}

func TestProviderService_UpdateUnknown(t *testing.T) {
	repo := new(mockProviderRepository)
	repo.On("GetByID", mock.Anything, "nope").Return(nil, apperrors.NewNotFoundError("provider with id nope not found"))

	_, err := NewProviderService(repo, nil).Update(context.Background(), "nope", &entities.Provider{Name: "X"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestProviderService_DeleteRemovesFromIndex(t *testing.T) {
	repo := new(mockProviderRepository)
	index := new(mockProviderIndex)
	repo.On("Delete", mock.Anything, "p1").Return(nil)
	index.On("Remove", mock.Anything, "p1").Return(nil)

	require.NoError(t, NewProviderService(repo, index).Delete(context.Background(), "p1"))
	index.AssertExpectations(t)
}

func TestProviderService_ListClampsPaging(t *testing.T) {
	repo := new(mockProviderRepository)
	repo.On("List", mock.Anything, repositories.ProviderFilter{City: "Lyon", Limit: 200}).Return([]*entities.Provider{}, nil)
	repo.On("List", mock.Anything, repositories.ProviderFilter{Limit: 50}).Return([]*entities.Provider{}, nil)

	service := NewProviderService(repo, nil)
	_, err := service.List(context.Background(), repositories.ProviderFilter{City: "Lyon", Limit: 1000, Offset: -3})
	require.NoError(t, err)
	_, err = service.List(context.Background(), repositories.ProviderFilter{})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProviderService_Reindex(t *testing.T) {
	repo := new(mockProviderRepository)
	index := new(mockProviderIndex)

	full := make([]*entities.Provider, reindexBatchSize)
	for i := range full {
		full[i] = &entities.Provider{ID: "p"}
	}
	repo.On("List", mock.Anything, repositories.ProviderFilter{Limit: reindexBatchSize}).Return(full, nil)
	repo.On("List", mock.Anything, repositories.ProviderFilter{Limit: reindexBatchSize, Offset: reindexBatchSize}).
		Return([]*entities.Provider{{ID: "last"}}, nil)
	index.On("Index", mock.Anything, mock.Anything).Return(nil)

	count, err := NewProviderService(repo, index).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reindexBatchSize+1, count)
}

func TestProviderService_ReindexWithoutIndex(t *testing.T) {
	_, err := NewProviderService(new(mockProviderRepository), nil).Reindex(context.Background())
	assert.Error(t, err)
}

func TestProviderService_PublishesChangeEvents(t *testing.T) {
	repo := new(mockProviderRepository)
	bus := new(mockEventBus)
	service := NewProviderService(repo, nil)
	service.SetEventBus(bus)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Provider")).Return(nil)
	repo.On("Delete", mock.Anything, "p1").Return(nil)
	bus.On("Publish", mock.Anything, providers.EventChannelProviderUpdates, mock.MatchedBy(func(e *entities.ProviderEvent) bool {
		return e.EventType == entities.ProviderEventCreated && e.ProviderID != ""
	})).Return(nil).Once()
	bus.On("Publish", mock.Anything, providers.EventChannelProviderUpdates, mock.MatchedBy(func(e *entities.ProviderEvent) bool {
		return e.EventType == entities.ProviderEventDeleted && e.ProviderID == "p1"
	})).Return(errors.New("redis down")).Once()

	_, err := service.Create(context.Background(), &entities.Provider{Name: "Pharmacie Plateau"})
	require.NoError(t, err)
	require.NoError(t, service.Delete(context.Background(), "p1"), "publish faults must not fail the write")

	bus.AssertExpectations(t)
}

func TestProviderService_FailedWritePublishesNothing(t *testing.T) {
	repo := new(mockProviderRepository)
	bus := new(mockEventBus)
	service := NewProviderService(repo, nil)
	service.SetEventBus(bus)

	repo.On("Delete", mock.Anything, "p1").Return(apperrors.NewNotFoundError("provider with id p1 not found"))

	assert.Error(t, service.Delete(context.Background(), "p1"))
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderService_SearchPrefersIndex(t *testing.T) {
	repo := searchableProviderRepository{new(mockProviderRepository), new(mockProviderSearch)}
	index := new(mockProviderIndex)
	service := NewProviderService(repo, index)

	index.On("SearchText", mock.Anything, "Cliniqe Nord", defaultSearchLimit).Return([]*entities.Provider{{ID: "p1"}}, nil)

	results, err := service.Search(context.Background(), "  Cliniqe Nord ", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	repo.mockProviderSearch.AssertNotCalled(t, "SearchText", mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderService_SearchFallsBackToStore(t *testing.T) {
	repo := searchableProviderRepository{new(mockProviderRepository), new(mockProviderSearch)}
	service := NewProviderService(repo, nil)

	repo.mockProviderSearch.On("SearchText", mock.Anything, "hopital general", maxProviderPageSize).
		Return([]*entities.Provider{{ID: "p2"}}, nil)

	results, err := service.Search(context.Background(), "Hôpital Général", 1000)
	require.NoError(t, err)
	assert.Equal(t, "p2", results[0].ID)
}

func TestProviderService_SearchRequiresTerm(t *testing.T) {
	service := NewProviderService(new(mockProviderRepository), nil)

	_, err := service.Search(context.Background(), "   ", 5)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.Search(context.Background(), "clinique", 5)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
