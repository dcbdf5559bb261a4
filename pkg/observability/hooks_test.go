package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPatchHooks{}
	p.OnStageStart(ctx, StageResolve, "serde")
	p.OnStageComplete(ctx, StageResolve, "serde", time.Second, nil)
	p.OnStageComplete(ctx, StageSync, "serde", time.Second, errors.New("boom"))

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "crates:serde")
	c.OnCacheMiss(ctx, "crates:tokio")
	c.OnCacheSet(ctx, "crates:tokio", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "crates.io", "/api/v1/crates/serde")
	h.OnResponse(ctx, "GET", "crates.io", "/api/v1/crates/serde", 200, time.Second)
	h.OnError(ctx, "GET", "crates.io", "/api/v1/crates/serde", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Patch().(NoopPatchHooks); !ok {
		t.Error("Patch() should return NoopPatchHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customPatch := &testPatchHooks{}
	SetPatchHooks(customPatch)
	if Patch() != customPatch {
		t.Error("SetPatchHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Patch().(NoopPatchHooks); !ok {
		t.Error("Reset() should restore NoopPatchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPatchHooks{}
	SetPatchHooks(custom)
	SetPatchHooks(nil)

	if Patch() != custom {
		t.Error("SetPatchHooks(nil) should be ignored")
	}

	Reset()
}

func TestSetHooksRestore(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	outer := &testPatchHooks{}
	SetPatchHooks(outer)

	inner := &testPatchHooks{}
	restore := SetPatchHooks(inner)
	if Patch() != inner {
		t.Fatal("SetPatchHooks should install the new hooks")
	}
	restore()
	if Patch() != outer {
		t.Error("restore should reinstate the previous hooks")
	}

	SetCacheHooks(nil)()
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("restore after a nil registration should change nothing")
	}
}

type testPatchHooks struct {
	NoopPatchHooks
	id int // non-zero size so each instance has its own address
}
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
