package factstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/aidanlsb/discourse/internal/tree"
)

// The store is an outline, so condition trees and vocabulary declarations
// can live in the graph itself.
var _ tree.Accessor = (*Store)(nil)

// Children implements tree.Accessor. The empty uid lists pages by title.
func (s *Store) Children(uid string) ([]tree.Node, error) {
	snap, err := s.snapshot(context.Background())
	if err != nil {
		return nil, err
	}
	if uid == "" {
		titles := snap.titles()
		out := make([]tree.Node, 0, len(titles))
		for i, t := range titles {
			e, _ := snap.lookup(AttrTitle, t)
			out = append(out, tree.Node{UID: snap.str(e, AttrUID), Text: t, Order: i})
		}
		return out, nil
	}

	e, ok := snap.lookup(AttrUID, uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, uid)
	}
	kids := snap.eav[e][AttrChildren]
	out := make([]tree.Node, 0, len(kids))
	for _, k := range kids {
		c, ok := k.(eid)
		if !ok {
			continue
		}
		order, _ := snap.first(c, AttrOrder)
		n, _ := order.(int64)
		out = append(out, tree.Node{UID: snap.str(c, AttrUID), Text: snap.entity(c).Text, Order: int(n)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// Create implements tree.Accessor. An empty parent creates a page titled
// text; order is clamped to the parent's child count.
func (s *Store) Create(parentUID string, order int, text string) (string, error) {
	var uid string
	err := s.write(context.Background(), func(w *writer) error {
		if parentUID == "" {
			_, u, err := w.writePage(Page{Title: text, Author: s.user}, false)
			uid = u
			return err
		}

		parent, ok, err := w.lookup(AttrUID, parentUID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, parentUID)
		}
		page := parent
		if pages, err := w.refsOf(parent, AttrPage); err != nil {
			return err
		} else if len(pages) > 0 {
			page = pages[0]
		}
		ancestors, err := w.refsOf(parent, AttrParents)
		if err != nil {
			return err
		}
		ancestors = append(ancestors, parent)

		siblings, err := w.children(parent)
		if err != nil {
			return err
		}
		if order < 0 || order > len(siblings) {
			order = len(siblings)
		}
		for i, sib := range siblings {
			want := i
			if i >= order {
				want = i + 1
			}
			if sib.order != want {
				if err := w.setOrder(sib.e, want); err != nil {
					return err
				}
			}
		}
		_, uid, err = w.writeBlock(Block{String: text, Author: s.user}, page, parent, ancestors, order)
		return err
	}, nil)
	if err != nil {
		return "", err
	}
	return uid, nil
}

// Update implements tree.Accessor. Pages are retitled; blocks get new text
// and their references are recomputed.
func (s *Store) Update(uid string, text string) error {
	return s.write(context.Background(), func(w *writer) error {
		e, ok, err := w.lookup(AttrUID, uid)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, uid)
		}
		isPage, err := w.has(e, AttrTitle)
		if err != nil {
			return err
		}
		attr := AttrString
		if isPage {
			attr = AttrTitle
			if other, taken, err := w.lookup(AttrTitle, text); err != nil {
				return err
			} else if taken && other != e {
				return fmt.Errorf("page %q already exists", text)
			}
		}
		if err := w.retract(e, attr); err != nil {
			return err
		}
		if err := w.put(e, attr, text); err != nil {
			return err
		}
		if !isPage {
			if err := w.retract(e, AttrRefs); err != nil {
				return err
			}
			w.refs = append(w.refs, pendingRef{e: e, text: text})
		}
		if err := w.retract(e, AttrEditTime); err != nil {
			return err
		}
		if err := w.put(e, AttrEditTime, w.now); err != nil {
			return err
		}
		if s.user != "" {
			u, err := w.user(s.user)
			if err != nil {
				return err
			}
			if err := w.retract(e, AttrEditUser); err != nil {
				return err
			}
			return w.put(e, AttrEditUser, u)
		}
		return nil
	}, nil)
}

// Delete implements tree.Accessor. Descendants go with the node and the
// remaining siblings are renumbered.
func (s *Store) Delete(uid string) error {
	return s.write(context.Background(), func(w *writer) error {
		e, ok, err := w.lookup(AttrUID, uid)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, uid)
		}
		parents, err := w.referrers(e, AttrChildren)
		if err != nil {
			return err
		}
		descendants, err := w.referrers(e, AttrParents)
		if err != nil {
			return err
		}
		if err := w.deleteEntities(append(descendants, e)); err != nil {
			return err
		}
		for _, p := range parents {
			siblings, err := w.children(p)
			if err != nil {
				return err
			}
			for i, sib := range siblings {
				if sib.order != i {
					if err := w.setOrder(sib.e, i); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}, nil)
}
