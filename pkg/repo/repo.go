package repo

import (
	"github.com/odvcencio/grit/pkg/logging"
	"github.com/odvcencio/grit/pkg/object"
)

// MetaDir is the name of the repository metadata directory.
const MetaDir = ".grit"

// Repo represents an opened grit repository.
type Repo struct {
	RootDir string        // working directory root
	GritDir string        // .grit/ directory
	Store   *object.Store // content-addressed object store

	log logging.Logger
}

// Option configures Init and Open.
type Option func(*options)

type options struct {
	log logging.Logger
}

// WithLogger routes repository and object store logging to l.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Logger returns the logger the repository was opened with.
func (r *Repo) Logger() logging.Logger {
	return r.log
}
