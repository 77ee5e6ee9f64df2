package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// FrameBuffer holds the most recent JPEG-encoded frame for preview
// streaming. The pipeline publishes; any number of readers wait.
type FrameBuffer struct {
	mirror bool

	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewFrameBuffer creates an empty buffer. With mirror set, published
// frames are flipped horizontally before encoding.
func NewFrameBuffer(mirror bool) *FrameBuffer {
	return &FrameBuffer{mirror: mirror, updated: make(chan struct{})}
}

// Publish encodes frame as JPEG and stores it.
func (b *FrameBuffer) Publish(frame *gocv.Mat) error {
	img := *frame
	if b.mirror {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(*frame, &flipped, 1)
		img = flipped
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	b.Set(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// Set stores an already encoded JPEG and wakes waiting readers.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.jpeg = jpeg
	b.seq++
	close(b.updated)
	b.updated = make(chan struct{})
}

// Latest returns the current frame and its sequence number. seq is 0
// before the first frame.
func (b *FrameBuffer) Latest() ([]byte, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jpeg, b.seq
}

// Next blocks until a frame newer than after is available.
func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > after {
			jpeg, seq := b.jpeg, b.seq
			b.mu.Unlock()
			return jpeg, seq, nil
		}
		wait := b.updated
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}
