package pipeline

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/image-mergetree/internal/imaging"
	"github.com/ironsheep/image-mergetree/internal/mergetree"
)

// Paths names the files an Output is written to. Empty paths are skipped.
type Paths struct {
	MergeTree    string
	Labels       string
	Colorized    string
	Levels       string
	ConflictSets string

	// MaxHeight limits conflict sets; see mergetree.Forest.ConflictSets.
	MaxHeight int
}

// Write stores the requested outputs. It writes as many files as it can and
// returns every error it met.
func (o *Output) Write(p Paths) error {
	w, h := o.Input.Width, o.Input.Height
	var err error

	if p.MergeTree != "" {
		err = multierr.Append(err, imaging.SaveMergeTree(p.MergeTree, o.Result.Pixels, w, h))
	}
	if p.Labels != "" {
		err = multierr.Append(err, imaging.SaveLabels(p.Labels, o.Input.Labels, w, h))
	}
	if p.Colorized != "" {
		img, cerr := imaging.Colorize(o.Input.Labels, w, h)
		if cerr == nil {
			cerr = imaging.Save(img, p.Colorized)
		}
		err = multierr.Append(err, cerr)
	}
	if p.Levels != "" {
		img, cerr := imaging.ColorizeLevels(o.Result.Pixels, w, h, o.Result.MaxDistance)
		if cerr == nil {
			cerr = imaging.Save(img, p.Levels)
		}
		err = multierr.Append(err, cerr)
	}
	if p.ConflictSets != "" {
		err = multierr.Append(err, WriteConflictSets(p.ConflictSets, o.Result.Forest.ConflictSets(p.MaxHeight)))
	}
	return err
}

// conflictSetFile is the JSON layout of a conflict set file.
type conflictSetFile struct {
	ConflictSets []mergetree.ConflictSet `json:"conflict_sets"`
}

// WriteConflictSets stores conflict sets as indented JSON.
func WriteConflictSets(path string, sets []mergetree.ConflictSet) error {
	data, err := json.MarshalIndent(conflictSetFile{ConflictSets: sets}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode conflict sets")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write conflict sets to %s", path)
	}
	return nil
}

// ReadConflictSets loads a file written by WriteConflictSets.
func ReadConflictSets(path string) ([]mergetree.ConflictSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read conflict sets from %s", path)
	}
	var f conflictSetFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode conflict sets from %s", path)
	}
	return f.ConflictSets, nil
}
