package embeddings

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Per-channel normalization constants used when the backbone was trained.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// preprocessImage decodes raw image bytes and converts them into the CHW
// float32 tensor the model expects: an RGB image resized to a size x size
// square, scaled to [0,1] and normalized per channel.
func preprocessImage(data []byte, size int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, NewDecodeError(err)
	}
	return imageToTensor(img, size), nil
}

func imageToTensor(img image.Image, size int) []float32 {
	// imaging.Resize discards alpha against black, which matches the
	// RGB conversion the model was trained with. Linear interpolation
	// mirrors the bilinear resize of the training pipeline.
	resized := imaging.Resize(img, size, size, imaging.Linear)

	plane := size * size
	tensor := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+size*4]
		for x := 0; x < size; x++ {
			for c := 0; c < 3; c++ {
				v := float32(row[x*4+c]) / 255.0
				tensor[c*plane+y*size+x] = (v - channelMean[c]) / channelStd[c]
			}
		}
	}

	return tensor
}
