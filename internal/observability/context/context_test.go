package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, context.Background(), WithRequestID(context.Background(), ""))
}

func TestActor(t *testing.T) {
	kind, id := ActorFromContext(WithActor(context.Background(), "admin", "token-1"))
	assert.Equal(t, "admin", kind)
	assert.Equal(t, "token-1", id)

	kind, id = ActorFromContext(context.Background())
	assert.Empty(t, kind)
	assert.Empty(t, id)
}

func TestClient(t *testing.T) {
	ip, ua := ClientFromContext(WithClient(context.Background(), "10.0.0.1 ", " curl/8"))
	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, "curl/8", ua)

	ip, ua = ClientFromContext(context.Background())
	assert.Empty(t, ip)
	assert.Empty(t, ua)
}
