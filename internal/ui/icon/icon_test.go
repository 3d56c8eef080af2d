package icon

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestPNGDecodes(t *testing.T) {
	data, err := PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != Size || b.Dy() != Size {
		t.Fatalf("bounds = %v, want %dx%d", b, Size, Size)
	}
	if _, _, _, a := img.At(22, 22).RGBA(); a == 0 {
		t.Fatal("sun center is transparent")
	}
}

func TestICOWrapsPNG(t *testing.T) {
	data, err := PNG()
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	ico, err := ICO()
	if err != nil {
		t.Fatalf("ICO() error = %v", err)
	}
	if got := binary.LittleEndian.Uint16(ico[2:4]); got != 1 {
		t.Fatalf("image type = %d, want 1", got)
	}
	if ico[6] != Size || ico[7] != Size {
		t.Fatalf("entry size = %dx%d, want %dx%d", ico[6], ico[7], Size, Size)
	}
	if got := binary.LittleEndian.Uint32(ico[14:18]); int(got) != len(data) {
		t.Fatalf("entry length = %d, want %d", got, len(data))
	}
	if !bytes.Equal(ico[22:], data) {
		t.Fatal("ICO payload does not match PNG")
	}
}

func TestBuildSingleIconICORejectsLargeImages(t *testing.T) {
	if _, err := buildSingleIconICO(nil, 512, 512); err == nil {
		t.Fatal("expected error for 512x512 icon")
	}
	ico, err := buildSingleIconICO([]byte{1}, 256, 256)
	if err != nil {
		t.Fatalf("buildSingleIconICO() error = %v", err)
	}
	if ico[6] != 0 || ico[7] != 0 {
		t.Fatalf("256px dimensions encoded as %d/%d, want 0/0", ico[6], ico[7])
	}
}
