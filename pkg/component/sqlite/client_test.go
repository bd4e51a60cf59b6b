package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   uint
	Body string
}

func TestMemoryDatabase(t *testing.T) {
	client, err := New(context.Background(), MemoryPath, 1)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	db := client.DB()
	require.NoError(t, db.AutoMigrate(&note{}))
	require.NoError(t, db.Create(&note{Body: "hello"}).Error)

	var got note
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "sqlite", client.Name())
	assert.NoError(t, client.Ping(context.Background()))
}

func TestEmptyPath(t *testing.T) {
	_, err := New(context.Background(), "", 1)
	assert.Error(t, err)
}
