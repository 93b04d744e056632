package instance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInstance(t *testing.T) {
	assert.Nil(t, GetInstance(context.Background()))

	inst := New()
	ctx := WithInstance(context.Background(), inst)
	assert.Same(t, inst, GetInstance(ctx))

	child, cancel := context.WithCancel(ctx)
	defer cancel()
	assert.Same(t, inst, GetInstance(child))
}
