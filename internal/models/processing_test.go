package models

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParametersAreValid(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Parameters)
		param  string
	}{
		{"inverted hysteresis", func(p *Parameters) { p.EdgeDetection.HysteresisMax = p.EdgeDetection.HysteresisMin }, "hysteresis_max"},
		{"zero scaling", func(p *Parameters) { p.Preprocessing.ImageScaling = 0 }, "image_scaling"},
		{"unknown cluster type", func(p *Parameters) { p.SegmentClustering.ClusterType = "dbscan" }, "cluster_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.modify(&p)
			err := p.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.param, verr.Parameter)
		})
	}
}

func TestConfigurationSnapshotIsIsolated(t *testing.T) {
	pc := NewProcessingConfiguration(DefaultParameters())
	before := pc.Snapshot()

	pc.Update(func(p *Parameters) { p.EdgeDetection.HysteresisMin = 99 })

	assert.Equal(t, 30, before.EdgeDetection.HysteresisMin)
	assert.Equal(t, 99, pc.Snapshot().EdgeDetection.HysteresisMin)
	assert.Equal(t, uint64(1), pc.Version())
}

func TestConfigurationConcurrentWritersAndReaders(t *testing.T) {
	pc := NewProcessingConfiguration(DefaultParameters())
	pc.Update(func(p *Parameters) {
		p.EdgeDetection.HysteresisMin = 0
		p.EdgeDetection.HysteresisMax = 1
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pc.Update(func(p *Parameters) {
					p.EdgeDetection.HysteresisMin = v
					p.EdgeDetection.HysteresisMax = v + 1
				})
			}
		}(i * 10)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := pc.Snapshot()
				// whole-record swaps never expose a torn pair
				assert.Equal(t, snap.EdgeDetection.HysteresisMin+1, snap.EdgeDetection.HysteresisMax)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, uint64(801), pc.Version())
}

func TestDegreesToRadians(t *testing.T) {
	assert.InDelta(t, math.Pi, 180*DegreesToRadians, 1e-12)
}
