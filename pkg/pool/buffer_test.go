package pool

import (
	"testing"
)

func TestNewBufferPool_PanicsOnNonPositiveSize(t *testing.T) {
	for _, size := range []int64{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for size %d", size)
				}
			}()
			NewBufferPool(size)
		}()
	}
}

func TestBufferPool(t *testing.T) {
	size := int64(4096)
	bp := NewBufferPool(size)

	if bp.Size() != size {
		t.Fatalf("expected Size %d, got %d", size, bp.Size())
	}

	bufPtr := bp.Get()
	if int64(len(*bufPtr)) != size {
		t.Errorf("expected len %d, got %d", size, len(*bufPtr))
	}

	// A shrunk slice is restored to full length on Put.
	*bufPtr = (*bufPtr)[:10]
	bp.Put(bufPtr)
	if int64(len(*bufPtr)) != size {
		t.Errorf("expected Put to restore len %d, got %d", size, len(*bufPtr))
	}

	// Foreign capacity is ignored and must not panic.
	wrong := make([]byte, 100)
	bp.Put(&wrong)
	bp.Put(nil)
}
