package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("engine port is optional", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
			Engine: &mockEngine{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{Engine: &mockEngine{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("search only is valid", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

// connect starts s on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_ListTools(t *testing.T) {
	t.Run("search only", func(t *testing.T) {
		s, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		res, err := connect(t, s).ListTools(context.Background(), nil)
		require.NoError(t, err)

		var names []string
		for _, tool := range res.Tools {
			names = append(names, tool.Name)
		}
		assert.Equal(t, []string{"search_images"}, names)
	})

	t.Run("with engine", func(t *testing.T) {
		s, err := NewServer(&Ports{Search: &mockSearchService{}, Engine: &mockEngine{}})
		require.NoError(t, err)

		res, err := connect(t, s).ListTools(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, res.Tools, 2)
	})
}

func TestServer_CallSearchOverTransport(t *testing.T) {
	search := &mockSearchService{response: &domain.SearchResponse{Results: []domain.ImageResult{
		{Score: 0.5, URL: "https://iiif.example.org/a", Link: "https://iiif.example.org/a/full/640,/0/default.jpg"},
	}}}
	s, err := NewServer(&Ports{Search: search})
	require.NoError(t, err)
	session := connect(t, s)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_images",
		Arguments: map[string]any{"query": "boats", "limit": 3},
	})

	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, domain.QueryModeText, search.last.Input.Mode)
	assert.Equal(t, 3, search.last.Limit)
	assert.Contains(t, session.InitializeResult().Instructions, "search_images")
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	s, err := NewServer(&Ports{Search: &mockSearchService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunHTTP(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
