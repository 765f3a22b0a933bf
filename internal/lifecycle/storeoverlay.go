package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avtreegw/internal/bootstrap"
	"github.com/vyrodovalexey/avtreegw/internal/config"
	"github.com/vyrodovalexey/avtreegw/internal/observability"
	"github.com/vyrodovalexey/avtreegw/internal/store"
	"github.com/vyrodovalexey/avtreegw/internal/util"
)

// resolveGateway reconciles the dynamic gateway subtree between the
// locally resolved value and whatever the store holds:
//
//   - stored value present: stored keys win, local keys fill gaps,
//     recursively; the merged result must still carry a protocol section
//     and must validate against the gateway schema.
//   - nothing stored and no local value: a default gateway is
//     synthesized from the packaged template, given a fresh random admin
//     session secret, persisted, and registered with a new version
//     marker.
//   - nothing stored but a local value exists: the local value is
//     accepted as-is, without a store write.
//
// This is the only pipeline stage that performs network I/O.
func (c *Controller) resolveGateway(
	ctx context.Context, local map[string]any, db *config.DatabaseConfig,
) (*config.GatewayConfig, error) {
	st, err := c.storeFactory(db)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	stored, err := st.GetGateway(ctx)

	var merged map[string]any
	switch {
	case err == nil:
		merged, err = config.Merge(local, stored)
		if err != nil {
			return nil, err
		}

	case errors.Is(err, util.ErrNotFound):
		if len(local) > 0 {
			merged = local
			break
		}

		merged, err = c.seedDefaultGateway(ctx, st)
		if err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	if !hasProtocol(merged) {
		return nil, util.ErrMissingProtocol
	}

	gateway, err := config.DecodeGateway(merged)
	if err != nil {
		return nil, err
	}
	if err := gateway.Validate(); err != nil {
		return nil, err
	}
	return gateway, nil
}

// seedDefaultGateway synthesizes the initial stored gateway value from
// the packaged template and persists it together with a version marker
// for the new configuration generation.
func (c *Controller) seedDefaultGateway(
	ctx context.Context, st store.ConfigStore,
) (map[string]any, error) {
	merged, err := bootstrap.DefaultGateway()
	if err != nil {
		return nil, err
	}

	secret, err := newSessionSecret()
	if err != nil {
		return nil, err
	}
	admin, ok := merged["admin"].(map[string]any)
	if !ok {
		admin = map[string]any{}
		merged["admin"] = admin
	}
	admin["sessionSecret"] = secret

	if err := st.SetGateway(ctx, merged); err != nil {
		return nil, err
	}
	version := uuid.NewString()
	if err := st.SetVersion(ctx, version); err != nil {
		return nil, err
	}

	c.logger.Info("seeded default gateway configuration",
		observability.String("version", version))
	return merged, nil
}

// hasProtocol reports whether the merged gateway tree carries a
// non-empty protocol section. Checked explicitly after merging because
// protocol configuration cannot be synthesized.
func hasProtocol(raw map[string]any) bool {
	protocol, ok := raw["protocol"].(map[string]any)
	return ok && len(protocol) > 0
}

// newSessionSecret generates a fresh random secret for the
// administrative authentication subsystem.
func newSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
