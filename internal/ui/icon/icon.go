// Package icon draws the application icon so the desktop UI and the
// Windows resource build share one source.
package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

const Size = 64

var (
	sunColor = color.NRGBA{R: 250, G: 176, B: 5, A: 255}
	barColor = color.NRGBA{R: 36, G: 112, B: 72, A: 255}
)

// Image draws a sun over a rising bar chart.
func Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	cx, cy, r := 22.0, 22.0, 14.0
	for y := range Size {
		for x := range Size {
			dx, dy := float64(x)-cx, float64(y)-cy
			dist := math.Hypot(dx, dy)
			switch {
			case dist <= r:
				img.SetNRGBA(x, y, sunColor)
			case dist <= r+6 && int(math.Round(math.Atan2(dy, dx)/(math.Pi/4)*2))%2 == 0:
				img.SetNRGBA(x, y, sunColor)
			}
		}
	}
	bars := []struct{ x0, top int }{{30, 44}, {40, 36}, {50, 26}}
	for _, bar := range bars {
		for y := bar.top; y < Size-4; y++ {
			for x := bar.x0; x < bar.x0+8; x++ {
				img.SetNRGBA(x, y, barColor)
			}
		}
	}
	return img
}

var encoded = sync.OnceValues(func() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
})

// PNG returns the encoded icon. The result is shared and must not be
// modified.
func PNG() ([]byte, error) {
	return encoded()
}

// ICO wraps the PNG icon in a single-entry ICO container.
func ICO() ([]byte, error) {
	data, err := PNG()
	if err != nil {
		return nil, err
	}
	return buildSingleIconICO(data, Size, Size)
}

func buildSingleIconICO(pngData []byte, width int, height int) ([]byte, error) {
	const (
		iconDirSize      = 6
		iconDirEntrySize = 16
	)
	if width <= 0 || height <= 0 || width > 256 || height > 256 {
		return nil, fmt.Errorf("icon dimensions must be 1..256, got %dx%d", width, height)
	}
	buf := make([]byte, iconDirSize+iconDirEntrySize+len(pngData))

	binary.LittleEndian.PutUint16(buf[0:2], 0) // reserved
	binary.LittleEndian.PutUint16(buf[2:4], 1) // icon
	binary.LittleEndian.PutUint16(buf[4:6], 1) // image count

	entry := buf[iconDirSize : iconDirSize+iconDirEntrySize]
	entry[0] = iconDimByte(width)
	entry[1] = iconDimByte(height)
	binary.LittleEndian.PutUint16(entry[4:6], 1)  // color planes
	binary.LittleEndian.PutUint16(entry[6:8], 32) // bits per pixel
	binary.LittleEndian.PutUint32(entry[8:12], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(entry[12:16], uint32(iconDirSize+iconDirEntrySize))

	copy(buf[iconDirSize+iconDirEntrySize:], pngData)
	return buf, nil
}

func iconDimByte(v int) byte {
	if v >= 256 {
		return 0
	}
	return byte(v)
}
