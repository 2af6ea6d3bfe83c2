package hdf5

import (
	"errors"
	"path"
)

// WalkFunc receives each object visited by Walk. obj is a *Group or a
// *Dataset, or nil when the child could not be opened (err carries the
// cause). A non-nil return stops the walk and is returned by Walk.
type WalkFunc func(p string, obj any, err error) error

// Walk visits g and every group and dataset reachable below it,
// depth-first in member order.
func Walk(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	members, err := g.Members()
	if err != nil {
		return err
	}
	for _, name := range members {
		childPath := path.Join(g.Path(), name)
		if child, err := g.OpenGroup(name); err == nil {
			if err := Walk(child, fn); err != nil {
				return err
			}
			continue
		}
		ds, err := g.OpenDataset(name)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(childPath, ds, nil); err != nil {
			return err
		}
	}
	return nil
}

// AttrInfo describes one attribute visited by WalkAttrs.
type AttrInfo struct {
	// Path addresses the attribute in "/object@name" form.
	Path       string
	ObjectPath string
	// ObjectType is "group" or "dataset".
	ObjectType string
	Name       string
	// Attr gives typed access beyond the decoded Value.
	Attr *Attribute
	// Value is the decoded attribute value; Err is set when decoding
	// failed, and the walk continues either way.
	Value any
	Err   error
}

// WalkAttrsFunc receives each attribute visited by WalkAttrs. A
// non-nil return stops the walk.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs visits every attribute on every group and dataset in the
// file. Return ErrStopWalk to end the walk early.
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	if f.closed {
		return ErrClosed
	}
	return f.walkGroupAttrs(f.root, fn)
}

func (f *File) walkGroupAttrs(g *Group, fn WalkAttrsFunc) error {
	if err := emitAttrs(g.Path(), "group", g, fn); err != nil {
		return err
	}
	members, err := g.Members()
	if err != nil {
		return err
	}
	for _, name := range members {
		childPath := path.Join(g.Path(), name)
		if child, err := g.OpenGroup(name); err == nil {
			if err := f.walkGroupAttrs(child, fn); err != nil {
				return err
			}
			continue
		}
		ds, err := g.OpenDataset(name)
		if err != nil {
			continue
		}
		if err := emitAttrs(childPath, "dataset", ds, fn); err != nil {
			return err
		}
	}
	return nil
}

// attrSource is satisfied by *Group and *Dataset.
type attrSource interface {
	Attrs() []string
	Attr(name string) *Attribute
}

func emitAttrs(objectPath, objectType string, src attrSource, fn WalkAttrsFunc) error {
	for _, name := range src.Attrs() {
		info := AttrInfo{
			Path:       JoinAttrPath(objectPath, name),
			ObjectPath: objectPath,
			ObjectType: objectType,
			Name:       name,
			Attr:       src.Attr(name),
		}
		if info.Attr != nil {
			info.Value, info.Err = info.Attr.Value()
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// ErrStopWalk ends a walk early; callers match it with IsStopWalk or
// errors.Is.
var ErrStopWalk = errors.New("walk stopped")

// IsStopWalk reports whether err is ErrStopWalk.
func IsStopWalk(err error) bool {
	return errors.Is(err, ErrStopWalk)
}
