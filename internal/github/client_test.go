package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DefaultsToGitHubCom(t *testing.T) {
	client, err := NewClient("", "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/", client.BaseURL.String())
}

func TestNewClient_EnterpriseURL(t *testing.T) {
	client, err := NewClient("token", "https://ghe.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", client.BaseURL.String())
}
