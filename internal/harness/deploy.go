package harness

import (
	"context"
	"fmt"
	"os"

	"github.com/canonical/ceph-bench/internal/bundle"
)

// Deploy builds the deployment bundle and submits it to a fresh model.
// When no model name is configured one is generated from the process ID,
// so repeated deployments land in separate models.
func (h *Harness) Deploy(ctx context.Context) error {
	model := h.cfg.Deploy.Model
	if model == "" {
		model = fmt.Sprintf("bench-%x", os.Getpid())
	}

	b, err := bundle.Build(bundle.Options{
		WoodpeckerCharm: h.cfg.Deploy.WoodpeckerCharm,
		NumOSDs:         h.cfg.Deploy.NumOSDs,
		Channel:         h.cfg.Deploy.Channel,
		Series:          h.cfg.Deploy.Series,
		Storage:         h.cfg.Deploy.Storage,
		Constraints:     h.cfg.Deploy.Constraints,
		PPA:             h.cfg.Deploy.PPA,
		Rados:           h.cfg.Deploy.Rados,
	})
	if err != nil {
		return err
	}

	h.logger.Printf("deploying to model: %s", model)
	if err := h.orch.AddModel(ctx, model); err != nil {
		return err
	}
	if err := h.orch.Switch(ctx, model); err != nil {
		return err
	}

	bundlePath := fmt.Sprintf("./bundle-%d.yaml", os.Getpid())
	if err := b.WriteFile(bundlePath); err != nil {
		return err
	}
	defer os.Remove(bundlePath)

	if err := h.orch.DeployBundle(ctx, bundlePath); err != nil {
		return err
	}
	h.logger.Printf("deployment submitted, watch progress with: juju status -m %s", model)
	return nil
}
