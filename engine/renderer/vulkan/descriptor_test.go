package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/nou/engine/core"
)

func TestDescriptorAllocatorExhaustion(t *testing.T) {
	ctx := newMockContext(t)
	allocator, err := NewDescriptorAllocator(ctx, 2)
	if err != nil {
		t.Fatalf("NewDescriptorAllocator: %v", err)
	}
	layout, err := newMaterialSetLayout(ctx.device, false)
	if err != nil {
		t.Fatalf("newMaterialSetLayout: %v", err)
	}

	first, err := allocator.Allocate(layout)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := allocator.Allocate(layout); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := allocator.Allocate(layout); !errors.Is(err, core.ErrAllocationFailure) {
		t.Fatalf("third Allocate error = %v, want ErrAllocationFailure", err)
	}
	if err := allocator.Free(first); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, err := allocator.Allocate(layout); err != nil {
		t.Errorf("Allocate after Free: %v", err)
	}
	if allocator.Allocated() != 2 {
		t.Errorf("Allocated() = %d, want 2", allocator.Allocated())
	}
}
