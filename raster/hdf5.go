package raster

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/hdf5"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/service/log"
)

// HDF5Backend reads 2-D datasets out of HDF5 stacks (MintPy, HyP3, ...).
type HDF5Backend struct{}

func NewHDF5Backend() *HDF5Backend { return &HDF5Backend{} }

func (b *HDF5Backend) Name() string { return "hdf5" }

func (b *HDF5Backend) CanOpen(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".he5", ".hdf5":
		return true
	}
	return false
}

type h5Dataset struct {
	path string
	dims []int
}

// squeeze drops singleton dimensions. The result must be 2-D to be usable.
func squeeze(dims []int) []int {
	out := make([]int, 0, len(dims))
	for _, d := range dims {
		if d != 1 {
			out = append(out, d)
		}
	}
	return out
}

func (b *HDF5Backend) Open(ctx context.Context, path string) (*Raster, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var found []h5Dataset
	if err := walkDatasets(&f.CommonFG, "", &found); err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: no 2-D dataset found", path)
	}

	best := pickDataset(found)
	log.Logger(ctx).Sugar().Debugf("%s: reading dataset %s %v", path, best.path, best.dims)

	dset, err := f.OpenDataset(best.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", best.path, err)
	}
	defer dset.Close()

	sq := squeeze(best.dims)
	h, w := sq[0], sq[1]
	data, err := readAsFloat64(dset, w*h)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", best.path, err)
	}
	for i, v := range data {
		if math.IsInf(v, 0) {
			data[i] = math.NaN()
		}
	}
	return &Raster{Width: w, Height: h, Data: data}, nil
}

// walkDatasets recursively collects datasets that squeeze to 2-D.
func walkDatasets(g *hdf5.CommonFG, prefix string, out *[]h5Dataset) error {
	n, err := g.NumObjects()
	if err != nil {
		return err
	}
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil {
			return err
		}
		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		if sub, err := g.OpenGroup(name); err == nil {
			err = walkDatasets(&sub.CommonFG, full, out)
			sub.Close()
			if err != nil {
				return err
			}
			continue
		}
		dset, err := g.OpenDataset(name)
		if err != nil {
			continue
		}
		space := dset.Space()
		dims, _, err := space.SimpleExtentDims()
		space.Close()
		dset.Close()
		if err != nil {
			continue
		}
		idims := make([]int, len(dims))
		for j, d := range dims {
			idims[j] = int(d)
		}
		if len(squeeze(idims)) == 2 {
			*out = append(*out, h5Dataset{path: full, dims: idims})
		}
	}
	return nil
}

// pickDataset prefers displacement-like dataset names, then the largest.
func pickDataset(found []h5Dataset) h5Dataset {
	best := found[0]
	bestArea, bestDisp := 0, false
	for i, d := range found {
		sq := squeeze(d.dims)
		area := sq[0] * sq[1]
		base := d.path[strings.LastIndex(d.path, "/")+1:]
		disp := common.ProductTypeFromFilename(base) == common.ProductDisplacement
		if i == 0 || (disp && !bestDisp) || (disp == bestDisp && area > bestArea) {
			best, bestArea, bestDisp = d, area, disp
		}
	}
	return best
}

func readAsFloat64(dset *hdf5.Dataset, n int) ([]float64, error) {
	dtype, err := dset.Datatype()
	if err != nil {
		return nil, err
	}
	defer dtype.Close()

	out := make([]float64, n)
	switch dtype.Class() {
	case hdf5.T_FLOAT:
		if dtype.Size() == 4 {
			buf := make([]float32, n)
			if err := dset.Read(&buf); err != nil {
				return nil, err
			}
			for i, v := range buf {
				out[i] = float64(v)
			}
		} else {
			if err := dset.Read(&out); err != nil {
				return nil, err
			}
		}
	case hdf5.T_INTEGER:
		if dtype.Size() <= 4 {
			buf := make([]int32, n)
			if err := dset.Read(&buf); err != nil {
				return nil, err
			}
			for i, v := range buf {
				out[i] = float64(v)
			}
		} else {
			buf := make([]int64, n)
			if err := dset.Read(&buf); err != nil {
				return nil, err
			}
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case hdf5.T_COMPOUND:
		// complex64 stored as {re, im} pairs: keep the phase angle
		type c64 struct{ Re, Im float32 }
		buf := make([]c64, n)
		if err := dset.Read(&buf); err != nil {
			return nil, err
		}
		for i, c := range buf {
			out[i] = math.Atan2(float64(c.Im), float64(c.Re))
		}
	default:
		return nil, fmt.Errorf("unsupported datatype class %v", dtype.Class())
	}
	return out, nil
}
