package inode

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// ReadProjectAttributes returns the serialized .attributes.json content
// for e, a ProjectAttributes descriptor. The owning project's
// attributes are fetched from the remote lazily, on first read or
// after invalidation, and the encoded bytes are cached on the
// descriptor so repeated reads and size queries agree (spec.md §4.5).
func (r *Registry) ReadProjectAttributes(ctx context.Context, e *Entity) ([]byte, error) {
	r.mu.Lock()
	cached := e.attrContent
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := r.refreshGroup.Do("attrs:"+strconv.FormatUint(e.id, 10), func() (any, error) {
		return r.fetchProjectAttributes(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Registry) fetchProjectAttributes(ctx context.Context, e *Entity) ([]byte, error) {
	r.mu.Lock()
	cached := e.attrContent
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	owner, err := r.ownerOf(ctx, e)
	if err != nil {
		return nil, err
	}

	meta, err := r.remote.GetProject(ctx, owner.RemoteID())
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	encoded, err := encodeAttributes(meta.Attributes)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	owner.attributes = meta.Attributes
	e.attributes = meta.Attributes
	e.attrContent = encoded
	r.mu.Unlock()

	return encoded, nil
}

// AttributesPreviewSize reports the byte length .attributes.json would
// report right now, without triggering a remote fetch: the cached
// encoding if a read already happened, otherwise the serialization of
// whatever attributes are already known (spec.md §4.5, "possibly empty").
func (r *Registry) AttributesPreviewSize(e *Entity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.attrContent != nil {
		return len(e.attrContent)
	}
	encoded, err := encodeAttributes(e.attributes)
	if err != nil {
		return 0
	}
	return len(encoded)
}

// encodeAttributes serializes attrs as indented JSON with no trailing
// newline, so the virtual file's reported size matches its bytes
// exactly. Map keys come out sorted, since encoding/json sorts
// map[string]any keys by default.
func encodeAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(attrs); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
