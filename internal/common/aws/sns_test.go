package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSNSClient(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	c, err := NewSNSClient(context.Background(), "ap-south-1", "")
	require.NoError(t, err)
	assert.NotNil(t, c.client)

	c, err = NewSNSClient(context.Background(), "ap-south-1", "http://localhost:4566")
	require.NoError(t, err)
	assert.NotNil(t, c.client)
}
