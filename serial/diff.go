// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package serial

import (
	jsonpatch "github.com/evanphx/json-patch/v5"
	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// opsKey is the field holding the patch operations in a diff Object.
const opsKey = "ops"

// GenerateDiff computes the structural field-level delta from a to b,
// returned in intermediate form, or nil if the two values encode
// identically. The delta is a sequence of add/replace/remove
// operations against a's encoded tree.
func GenerateDiff(a, b any) (Object, error) {
	patch, err := jsondiff.Compare(a, b)
	if err != nil {
		return nil, eris.Wrap(err, "serial: generate diff")
	}
	if len(patch) == 0 {
		return nil, nil
	}
	pb, err := json.Marshal(patch)
	if err != nil {
		return nil, eris.Wrap(err, "serial: generate diff")
	}
	var ops []any
	if err := json.Unmarshal(pb, &ops); err != nil {
		return nil, eris.Wrap(err, "serial: generate diff")
	}
	return Object{opsKey: ops}, nil
}

// ApplyDiff replays a delta produced by [GenerateDiff] onto the given
// target value (a pointer). Fields not named by the delta are left as
// they are in the target.
func ApplyDiff(target any, diff Object) error {
	if diff == nil {
		return nil
	}
	ops, ok := diff[opsKey]
	if !ok {
		return eris.New("serial: malformed diff: missing ops")
	}
	pb, err := json.Marshal(ops)
	if err != nil {
		return eris.Wrap(err, "serial: apply diff")
	}
	patch, err := jsonpatch.DecodePatch(pb)
	if err != nil {
		return eris.Wrap(err, "serial: apply diff")
	}
	doc, err := json.Marshal(target)
	if err != nil {
		return eris.Wrap(err, "serial: apply diff")
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return eris.Wrap(err, "serial: apply diff")
	}
	if err := json.Unmarshal(out, target); err != nil {
		return eris.Wrap(err, "serial: apply diff")
	}
	return nil
}
