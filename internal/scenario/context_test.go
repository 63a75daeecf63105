package scenario

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/truckmatch/routecompare/pkg/core"
)

func TestContext_Empty(t *testing.T) {
	ctx := NewContext()

	s, at := ctx.Get()
	assert.Equal(t, "", s.ID)
	assert.True(t, at.IsZero())
	assert.Nil(t, ctx.Attrs())
}

func TestContext_SetAndAttrs(t *testing.T) {
	ctx := NewContext()
	now := time.Now()
	ctx.Set(core.Scenario{ID: "IMP-7/EXP-3"}, now)

	s, at := ctx.Get()
	assert.Equal(t, "IMP-7/EXP-3", s.ID)
	assert.Equal(t, now, at)

	attrs := ctx.Attrs()
	assert.Len(t, attrs, 1)
	assert.Equal(t, "scenario", attrs[0].Key)
	assert.Equal(t, "IMP-7/EXP-3", attrs[0].Value.String())

	ctx.Clear()
	assert.Nil(t, ctx.Attrs())
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx.Set(core.Scenario{ID: "x"}, time.Now())
		}()
		go func() {
			defer wg.Done()
			_ = ctx.Attrs()
		}()
	}
	wg.Wait()
}
