package dirstat

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitedSetClaimOnce(t *testing.T) {
	var (
		set  visitedSet
		wins atomic.Int64
		wg   sync.WaitGroup
	)

	for range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if set.claim("/same/target") {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.False(t, set.claim("/same/target"), "a claimed path stays claimed")
	assert.True(t, set.claim("/other"))
}
