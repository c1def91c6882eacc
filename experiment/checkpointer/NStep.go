package checkpointer

import (
	"fmt"

	ts "github.com/samuelfneumann/smartslearn/timestep"
)

// nStep implements checkpointing every N steps of an episode
type nStep struct {
	interval int
	object   Saver // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with each
	// file having an incremented number as a suffix (e.g. file1.bin,
	// file2.bin, ..., fileK.bin), then use FilenameEnumerator.
	// Otherwise, if the filename does not matter, use FileTimer:
	//
	// n := NewNStep(10, object, FileTimer("filename", ".bin"))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps
func NewNStep(n int, object Saver, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive"+
			"\n\thave(%v)", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object if the TimeStep
// falls on the checkpoint interval
func (n *nStep) Checkpoint(t ts.TimeStep) error {
	if t.Number > 0 && t.Number%n.interval == 0 {
		if err := n.object.Save(n.filename()); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return nil
}
