// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import "fmt"

// PreconditionFailedError is returned when the scene lacks enough
// structure for any initializer to run (spec.md §7: "fewer than 7 shared
// points for EM with no PnP option, or fewer than 3 locked points for
// PnP-only configuration").
type PreconditionFailedError struct {
	Reason string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("bundle adjustment precondition failed: %s", e.Reason)
}
