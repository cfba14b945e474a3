package channel

import (
	"context"
	"fmt"
	"io"

	"fjacquet/txsort/internal/session"
)

// File is a non-interactive channel: it serves one upload from a path, "-"
// meaning standard input, and prints plain messages.
type File struct {
	path string
	out  io.Writer
}

// NewFile creates a channel serving path.
func NewFile(path string, out io.Writer) *File {
	return &File{path: path, out: out}
}

// Deliver prints the message, prefixed with "error:" for failures.
func (f *File) Deliver(_ context.Context, msg session.Message) error {
	if msg.Kind == session.MessageError {
		_, err := fmt.Fprintf(f.out, "error: %s\n", msg.Text)
		return err
	}
	_, err := fmt.Fprintln(f.out, msg.Text)
	return err
}

// RequestFile opens the configured path.
func (f *File) RequestFile(ctx context.Context) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return openUpload(f.path)
}
