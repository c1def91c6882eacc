package checkpointer

import (
	"fmt"
	"sync"
)

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	mu        sync.Mutex
	i         int
	name      string
	extension string
}

// filename returns the name of the next consecutive enumerated file
func (f *fileEnumerator) filename() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.i++
	return fmt.Sprintf("%v%v%v", f.name, f.i, f.extension)
}

// FilenameEnumerator returns a function which will return filenames
// with a counter integer suffix. Each time the returned function is
// called, the filename counter suffix will be one higher than on the
// previous call, starting at start+1. The filename parameter is the
// full filename with its path, while the extension parameter determines
// the file extension.
func FilenameEnumerator(start int, filename, extension string) func() string {
	enum := &fileEnumerator{i: start, name: filename, extension: extension}

	return enum.filename
}
