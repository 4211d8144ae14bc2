//go:build unix

package nodelete

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"nodelete/pkg/layout"
)

// File is a shared memory mapping of a whole file on disk.
type File struct {
	Name     string
	Contents []byte

	file     *os.File
	writable bool
}

// OpenFile maps name into memory. The mapping is writable only when writable
// is set; changes then reach the file on Sync or Close.
func OpenFile(name string, writable bool) (*File, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}

	f, err := os.OpenFile(name, flag, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open()")
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "fstat()")
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, errors.Errorf("open(): '%s' is not a regular file", name)
	}
	if st.Size() < int64(layout.MinFileSize) {
		f.Close()
		return nil, ErrTooSmall
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmap() '%s'", name)
	}

	return &File{
		Name:     name,
		Contents: data,
		file:     f,
		writable: writable,
	}, nil
}

func (f *File) Sync() error {
	if !f.writable {
		return nil
	}
	return errors.Wrapf(unix.Msync(f.Contents, unix.MS_SYNC), "msync() '%s'", f.Name)
}

// Close unmaps the file and closes it. It does not sync.
func (f *File) Close() error {
	err := errors.Wrapf(unix.Munmap(f.Contents), "munmap() '%s'", f.Name)
	f.Contents = nil
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}
