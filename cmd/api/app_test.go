package main

import (
	"context"
	"errors"
	"testing"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

type fakeSchemaIndex struct {
	schemaErr error
}

func (f *fakeSchemaIndex) InitSchema(ctx context.Context) error { return f.schemaErr }

func (f *fakeSchemaIndex) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	return nil, errors.New("index unavailable")
}

func (f *fakeSchemaIndex) Index(ctx context.Context, provider *entities.Provider) error { return nil }

func (f *fakeSchemaIndex) Remove(ctx context.Context, id string) error { return nil }

func TestOpenProviderIndex_SchemaFailureDisablesIndex(t *testing.T) {
	index := openProviderIndex(context.Background(), &fakeSchemaIndex{schemaErr: errors.New("connection refused")})
	assert.Nil(t, index)
}

func TestOpenProviderIndex_Ready(t *testing.T) {
	ready := &fakeSchemaIndex{}
	index := openProviderIndex(context.Background(), ready)
	assert.Same(t, ready, index)
}
