package registry

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"

	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// Channel-neutral defaults applied when normalize is requested without
// explicit mean/std vectors.
const defaultMoment = 0.5

// preprocess applies the descriptor-declared input transforms in order:
// spatial resize, mean/std normalization, then batch-dimension insertion for
// unbatched (rank 3, HWC) inputs.
func preprocess(desc types.Descriptor, in *tensor.Tensor) (*tensor.Tensor, error) {
	out := in
	pp := desc.Preprocessing
	if pp != nil && pp.Resize != nil {
		var err error
		if out, err = resizeSpatial(out, pp.Resize[0], pp.Resize[1]); err != nil {
			return nil, err
		}
	}
	if pp != nil && pp.Normalize {
		var err error
		if out, err = normalize(out, pp.Mean, pp.Std); err != nil {
			return nil, err
		}
	}
	if out.Rank() == 3 {
		out = out.ExpandDims(0)
	}
	return out, nil
}

// postprocess strips a singleton batch dimension and applies threshold
// binarization when the descriptor declares a segmentation threshold.
func postprocess(desc types.Descriptor, out *tensor.Tensor) (*tensor.Tensor, error) {
	result := out
	if result.Rank() == 4 && result.Shape()[0] == 1 {
		var err error
		if result, err = result.Squeeze(0); err != nil {
			return nil, err
		}
	}
	if hp := desc.Hyperparameters; hp != nil && hp.SegmentationThreshold != nil {
		result = binarize(result, *hp.SegmentationThreshold)
	}
	return result, nil
}

// normalize subtracts mean and divides by std per channel over the last
// dimension. Empty vectors default to 0.5; single-element vectors broadcast.
func normalize(t *tensor.Tensor, mean, std []float32) (*tensor.Tensor, error) {
	if t.Rank() == 0 {
		return nil, fmt.Errorf("normalize requires at least one dimension")
	}
	channels := t.Shape()[t.Rank()-1]
	meanAt, err := momentLookup("mean", mean, channels)
	if err != nil {
		return nil, err
	}
	stdAt, err := momentLookup("std", std, channels)
	if err != nil {
		return nil, err
	}
	out := tensor.New(t.Shape())
	src, dst := t.Data(), out.Data()
	for i, v := range src {
		c := i % channels
		dst[i] = (v - meanAt(c)) / stdAt(c)
	}
	return out, nil
}

func momentLookup(field string, v []float32, channels int) (func(int) float32, error) {
	switch len(v) {
	case 0:
		return func(int) float32 { return defaultMoment }, nil
	case 1:
		return func(int) float32 { return v[0] }, nil
	case channels:
		return func(c int) float32 { return v[c] }, nil
	}
	return nil, fmt.Errorf("preprocessing.%s has %d values for %d channels", field, len(v), channels)
}

// binarize maps every element to 0 or 1 by strict greater-than comparison.
func binarize(t *tensor.Tensor, threshold float32) *tensor.Tensor {
	out := tensor.New(t.Shape())
	src, dst := t.Data(), out.Data()
	for i, v := range src {
		if v > threshold {
			dst[i] = 1
		}
	}
	return out
}

// resizeSpatial resizes the height/width dimensions of an HWC or NHWC tensor
// to the target. Image-like channel counts (1, 3, 4) go through bilinear
// 16-bit image resampling; anything else falls back to nearest-neighbor on
// the raw tensor.
func resizeSpatial(t *tensor.Tensor, h, w int) (*tensor.Tensor, error) {
	switch t.Rank() {
	case 3:
		return resizeHWC(t, h, w)
	case 4:
		shape := t.Shape()
		batch := shape[0]
		outShape := tensor.Shape{batch, h, w, shape[3]}
		out := tensor.New(outShape)
		rowIn := shape[1] * shape[2] * shape[3]
		rowOut := h * w * shape[3]
		for b := 0; b < batch; b++ {
			slice, err := tensor.FromSlice(t.Data()[b*rowIn:(b+1)*rowIn], shape[1:])
			if err != nil {
				return nil, err
			}
			resized, err := resizeHWC(slice, h, w)
			if err != nil {
				return nil, err
			}
			copy(out.Data()[b*rowOut:(b+1)*rowOut], resized.Data())
		}
		return out, nil
	}
	return nil, fmt.Errorf("resize requires an HWC or NHWC tensor, got shape %v", t.Shape())
}

func resizeHWC(t *tensor.Tensor, h, w int) (*tensor.Tensor, error) {
	shape := t.Shape()
	srcH, srcW, c := shape[0], shape[1], shape[2]
	if srcH == h && srcW == w {
		return t, nil
	}
	switch c {
	case 1, 3, 4:
		return resizeBilinear(t, srcH, srcW, c, h, w), nil
	}
	return resizeNearest(t, srcH, srcW, c, h, w), nil
}

// resizeBilinear resamples through a 16-bit-per-channel image. Frame values
// are expected in [0,1]; anything outside is clamped.
func resizeBilinear(t *tensor.Tensor, srcH, srcW, c, h, w int) *tensor.Tensor {
	img := image.NewNRGBA64(image.Rect(0, 0, srcW, srcH))
	for y := 0; y < srcH; y++ {
		for x := 0; x < srcW; x++ {
			px := color.NRGBA64{A: 0xffff}
			switch c {
			case 1:
				g := quant16(t.At(y, x, 0))
				px.R, px.G, px.B = g, g, g
			case 3:
				px.R = quant16(t.At(y, x, 0))
				px.G = quant16(t.At(y, x, 1))
				px.B = quant16(t.At(y, x, 2))
			case 4:
				px.R = quant16(t.At(y, x, 0))
				px.G = quant16(t.At(y, x, 1))
				px.B = quant16(t.At(y, x, 2))
				px.A = quant16(t.At(y, x, 3))
			}
			img.SetNRGBA64(x, y, px)
		}
	}
	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	out := tensor.New(tensor.Shape{h, w, c})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := color.NRGBA64Model.Convert(resized.At(x, y)).(color.NRGBA64)
			switch c {
			case 1:
				out.Set(dequant16(px.R), y, x, 0)
			case 3:
				out.Set(dequant16(px.R), y, x, 0)
				out.Set(dequant16(px.G), y, x, 1)
				out.Set(dequant16(px.B), y, x, 2)
			case 4:
				out.Set(dequant16(px.R), y, x, 0)
				out.Set(dequant16(px.G), y, x, 1)
				out.Set(dequant16(px.B), y, x, 2)
				out.Set(dequant16(px.A), y, x, 3)
			}
		}
	}
	return out
}

func resizeNearest(t *tensor.Tensor, srcH, srcW, c, h, w int) *tensor.Tensor {
	out := tensor.New(tensor.Shape{h, w, c})
	for y := 0; y < h; y++ {
		sy := y * srcH / h
		for x := 0; x < w; x++ {
			sx := x * srcW / w
			for ch := 0; ch < c; ch++ {
				out.Set(t.At(sy, sx, ch), y, x, ch)
			}
		}
	}
	return out
}

func quant16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*65535 + 0.5)
}

func dequant16(v uint16) float32 {
	return float32(v) / 65535
}
