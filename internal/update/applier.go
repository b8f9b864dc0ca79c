package update

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sweeney/tank-monitor/internal/manifest"
)

// StagingApplier is the host-Linux stand-in for the device's flash
// path: it downloads the firmware image over the manifest transport and
// stages it at a fixed path for an external installer to pick up. The
// transport (and therefore the TLS trust policy) is shared with the
// manifest fetch, as the scheme-based selection rule requires.
type StagingApplier struct {
	transport manifest.Transport
	path      string
}

// NewStagingApplier creates an applier staging images at path.
func NewStagingApplier(transport manifest.Transport, path string) *StagingApplier {
	return &StagingApplier{transport: transport, path: path}
}

// Apply downloads the image and writes it to the staging path.
// 304 Not Modified maps to OutcomeNoUpdate; other non-2xx statuses,
// transport errors, empty bodies, and write failures map to
// OutcomeFailed with the status (or 0) as the code.
func (a *StagingApplier) Apply(url string) Result {
	status, body, err := a.transport.Get(url)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Code: status, Message: err.Error()}
	}
	if status == http.StatusNotModified {
		return Result{Outcome: OutcomeNoUpdate}
	}
	if status < 200 || status > 299 {
		return Result{
			Outcome: OutcomeFailed,
			Code:    status,
			Message: fmt.Sprintf("http status %d fetching image", status),
		}
	}
	if len(body) == 0 {
		return Result{Outcome: OutcomeFailed, Message: "empty firmware image"}
	}

	if err := os.WriteFile(a.path, body, 0o644); err != nil {
		return Result{Outcome: OutcomeFailed, Message: fmt.Sprintf("stage image: %v", err)}
	}
	return Result{Outcome: OutcomeSuccess}
}
