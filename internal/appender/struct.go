package appender

import (
	"github.com/pingcap/errors"

	"pg2parquet/internal/levels"
)

// FieldProjector extracts one child's logical value out of a decoded
// parent value. present=false means this particular field is absent
// even though the parent value itself is not NULL (e.g. a composite
// field missing from the wire payload, or an open-ended range bound).
type FieldProjector func(v any) (value any, present bool)

// Struct broadcasts one decoded value to every child appender. It
// serves both the dynamically merged shapes (root, composite) and the
// statically projected ones (range, interval-as-struct, array-with-dims,
// sparse-vector pairs), since Go's closures make the distinction a
// planning-time detail rather than a structural one: both are just an
// ordered list of (child, projector) pairs.
type Struct struct {
	maxDL, maxRL DL
	children     []Appender
	project      []FieldProjector
	names        []string // for diagnostics only
}

func NewStruct(maxDL, maxRL DL, names []string, children []Appender, project []FieldProjector) *Struct {
	if len(children) != len(project) || len(children) != len(names) {
		panic("appender.NewStruct: children, project and names must have equal length")
	}
	return &Struct{maxDL: maxDL, maxRL: maxRL, children: children, project: project, names: names}
}

func (s *Struct) MaxDL() DL { return s.maxDL }
func (s *Struct) MaxRL() DL { return s.maxRL }

func (s *Struct) RealMemorySize() int {
	total := 0
	for _, child := range s.children {
		total += child.RealMemorySize()
	}
	return total
}

func (s *Struct) AppendValue(path *levels.Index, v any) (int, error) {
	total := 0
	for i, child := range s.children {
		fieldVal, present := s.project[i](v)
		if present {
			n, err := child.AppendValue(path, fieldVal)
			if errors.Cause(err) == ErrSoftNull {
				if nerr := child.AppendNull(path, child.MaxDL()-1); nerr != nil {
					return total, errors.Annotatef(nerr, "field %s", s.names[i])
				}
				continue
			}
			if err != nil {
				return total, errors.Annotatef(err, "field %s", s.names[i])
			}
			total += n
			continue
		}
		if err := child.AppendNull(path, child.MaxDL()-1); err != nil {
			return total, errors.Annotatef(err, "field %s", s.names[i])
		}
	}
	return total, nil
}

func (s *Struct) AppendNull(path *levels.Index, dl DL) error {
	for i, child := range s.children {
		if err := child.AppendNull(path, dl); err != nil {
			return errors.Annotatef(err, "field %s", s.names[i])
		}
	}
	return nil
}

func (s *Struct) Flush(src ColumnWriterSource) error {
	for i, child := range s.children {
		if err := child.Flush(src); err != nil {
			return errors.Annotatef(err, "field %s", s.names[i])
		}
	}
	return nil
}
