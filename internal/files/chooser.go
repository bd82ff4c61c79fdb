package files

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/filex"
)

// Chooser supplies the local content to upload under name.
type Chooser interface {
	Choose(ctx context.Context, name string) (io.ReadCloser, error)
}

// PathChooser picks name from Dir.
type PathChooser struct {
	Dir string
}

func (c PathChooser) Choose(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := filex.SafeJoin(c.Dir, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNoFileChosen, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrNoFileChosen, err)
	}
	return f, nil
}
