package workflow_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sarlab/insar-analyzer/raster"
)

// memBackend serves synthetic rasters for mem:// paths.
type memBackend struct {
	rasters map[string]*raster.Raster
}

func (b *memBackend) Name() string { return "mem" }

func (b *memBackend) CanOpen(path string) bool {
	return strings.HasPrefix(path, "mem://")
}

func (b *memBackend) Open(ctx context.Context, path string) (*raster.Raster, error) {
	r, ok := b.rasters[path]
	if !ok {
		return nil, fmt.Errorf("no such raster %s", path)
	}
	cp := *r
	cp.Data = append([]float64(nil), r.Data...)
	return &cp, nil
}

var mem = &memBackend{rasters: map[string]*raster.Raster{}}

// 4x4 epoch filled with base, (1,1) raised by bump, (3,3) invalid.
func memEpoch(name string, base, bump float64) string {
	path := "mem://" + name
	data := make([]float64, 16)
	for i := range data {
		data[i] = base
	}
	data[1*4+1] = base + bump
	data[3*4+3] = math.NaN()
	mem.rasters[path] = &raster.Raster{Width: 4, Height: 4, Data: data}
	return path
}

var _ = BeforeSuite(func() {
	raster.Register(mem)
})

func TestWorkflow(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workflow Suite")
}
