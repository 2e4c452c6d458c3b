package display

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPipeSink_PacksRGB24(t *testing.T) {
	var out bytes.Buffer
	sink := NewPipeSink(&out, 2, 1)

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 4, G: 5, B: 6, A: 255})

	if err := sink.Show(img); err != nil {
		t.Fatalf("show: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6}, out.Bytes()); diff != "" {
		t.Errorf("packed frame mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeSink_RejectsMalformedFrames(t *testing.T) {
	var out bytes.Buffer
	sink := NewPipeSink(&out, 4, 4)

	for name, img := range map[string]*image.RGBA{
		"nil":        nil,
		"wrong size": solid(3, 4, color.RGBA{A: 255}),
	} {
		if err := sink.Show(img); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("%s: expected ErrMalformedFrame, got %v", name, err)
		}
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing written, got %d bytes", out.Len())
	}

	if err := sink.Show(solid(4, 4, color.RGBA{A: 255})); err != nil {
		t.Errorf("valid frame after rejected ones: %v", err)
	}
}

func TestSnapshotSink_WritesEveryNthFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hud.png")

	sink, err := NewSnapshotSink(path, ImagePNG, 2)
	if err != nil {
		t.Fatalf("creating sink: %v", err)
	}
	if err = sink.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	for _, c := range []color.RGBA{red, blue, blue} {
		if err = sink.Show(solid(8, 8, c)); err != nil {
			t.Fatalf("show: %v", err)
		}
	}

	if sink.Written() != 2 {
		t.Errorf("expected 2 snapshots, got %d", sink.Written())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if r, g, b, _ := img.At(3, 3).RGBA(); r != 0 || g != 0 || b != 0xffff {
		t.Errorf("expected latest frame to be blue, got %v", img.At(3, 3))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the snapshot in %s, found %d entries", dir, len(entries))
	}

	if err = sink.Stop(); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestSnapshotSink_MissingDirectory(t *testing.T) {
	sink, err := NewSnapshotSink(filepath.Join(t.TempDir(), "missing", "hud.jpeg"), ImageJPEG, 1)
	if err != nil {
		t.Fatalf("creating sink: %v", err)
	}
	if err = sink.Start(context.Background()); err == nil {
		t.Errorf("expected error for missing directory")
	}

	if _, err = NewSnapshotSink("hud.gif", "gif", 1); err == nil {
		t.Errorf("expected error for unknown format")
	}
}

func TestWebSocketSink_StreamsFrames(t *testing.T) {
	sink := NewWebSocketSink("127.0.0.1:0")
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sink.Stop()

	base := "http://" + sink.Addr().String()

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("fetching viewer: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.Contains(page, []byte("/stream")) {
		t.Errorf("viewer page does not reference the stream")
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+sink.Addr().String()+"/stream", nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for sink.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", sink.Clients())
	}

	if err = sink.Show(solid(16, 12, color.RGBA{G: 255, A: 255})); err != nil {
		t.Fatalf("show: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Errorf("expected binary message, got %d", mt)
	}

	img, err := jpeg.Decode(bytes.NewReader(msg))
	if err != nil {
		t.Fatalf("decoding frame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("unexpected frame size %v", b)
	}

	if err = sink.Stop(); err != nil {
		t.Errorf("stop: %v", err)
	}
	if sink.Clients() != 0 {
		t.Errorf("expected clients to be disconnected")
	}
	if err = sink.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestWebSocketSink_ShowWithoutClients(t *testing.T) {
	sink := NewWebSocketSink("127.0.0.1:0")
	if err := sink.Show(solid(4, 4, color.RGBA{A: 255})); err != nil {
		t.Errorf("expected frames to be discarded without clients, got %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Errorf("stop before start: %v", err)
	}
}
