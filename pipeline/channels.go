package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

// OutputChannel delivers an encoded payload somewhere the importer can pick it up.
type OutputChannel interface {
	Name() string
	Deliver(ctx context.Context, payload []byte) error
}

// ErrClipboardUnsupported is returned when no system clipboard is available.
var ErrClipboardUnsupported = errors.New("system clipboard unavailable")

// ClipboardChannel copies the payload to the system clipboard.
type ClipboardChannel struct {
	write       func(string) error
	unsupported bool
}

// NewClipboardChannel uses the host clipboard.
func NewClipboardChannel() *ClipboardChannel {
	return &ClipboardChannel{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

// Name implements OutputChannel.
func (c *ClipboardChannel) Name() string {
	return "clipboard"
}

// Deliver implements OutputChannel.
func (c *ClipboardChannel) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.unsupported {
		return ErrClipboardUnsupported
	}
	if err := c.write(string(payload)); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// WriterChannel writes the payload to an io.Writer such as stdout.
type WriterChannel struct {
	name string
	w    io.Writer
}

// NewWriterChannel wraps w under the given channel name.
func NewWriterChannel(name string, w io.Writer) *WriterChannel {
	return &WriterChannel{name: name, w: w}
}

// Name implements OutputChannel.
func (c *WriterChannel) Name() string {
	return c.name
}

// Deliver implements OutputChannel.
func (c *WriterChannel) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

// FileChannel writes the payload to a file, replacing it atomically.
type FileChannel struct {
	path string
}

// NewFileChannel writes to path; parent directories are created on delivery.
func NewFileChannel(path string) *FileChannel {
	return &FileChannel{path: path}
}

// Name implements OutputChannel.
func (c *FileChannel) Name() string {
	return "file"
}

// Path returns the destination file.
func (c *FileChannel) Path() string {
	return c.path
}

// Deliver implements OutputChannel.
func (c *FileChannel) Deliver(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ensureDir(c.path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".collection-import-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("rename to %s: %w", c.path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
