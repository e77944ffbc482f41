package painpoint

import (
	"errors"
	"fmt"
)

// ErrNoUsableText is the only fatal error class in the pipeline: it means no
// text rows survived loading and normalization, so there is nothing to cluster.
// Every other failure mode degrades to a deterministic local path instead.
var ErrNoUsableText = errors.New("no usable text rows")

// Stage identifies where a degradation happened.
type Stage string

const (
	StageEmbedding Stage = "embedding"
	StageSummarize Stage = "summarize"
	StageSelectK   Stage = "select-k"
)

// Degradation records one recovered failure: an external collaborator call or
// a numeric step that was replaced by its deterministic fallback. The pipeline
// collects these instead of aborting.
type Degradation struct {
	Stage  Stage
	Reason string
	Err    error
}

func (d Degradation) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s: %s: %v", d.Stage, d.Reason, d.Err)
	}
	return fmt.Sprintf("%s: %s", d.Stage, d.Reason)
}

func (d Degradation) Unwrap() error { return d.Err }
