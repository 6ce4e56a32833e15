// internal/app/bootstrap/ephemeral.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/exposite/internal/app/store/kv"
	"github.com/dalemusser/exposite/internal/app/store/kv/memkv"
	"github.com/dalemusser/exposite/internal/app/store/kv/rediskv"
	"github.com/dalemusser/exposite/internal/app/store/kv/sealedkv"
)

// NewEphemeral builds one tab's ephemeral store. scope keeps tabs apart when
// they share a Redis server; the memory backing is private to the tab.
func NewEphemeral(appCfg AppConfig, deps DBDeps, scope string) (kv.Ephemeral, error) {
	var e kv.Ephemeral
	switch appCfg.EphemeralBackend {
	case BackendMemory:
		e = memkv.New()
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("ephemeral_backend %q but no Redis client connected", BackendRedis)
		}
		e = rediskv.New(deps.Redis, scope, appCfg.TabTTL)
	default:
		return nil, fmt.Errorf("unknown ephemeral_backend %q", appCfg.EphemeralBackend)
	}

	if appCfg.SealKey == "" {
		return e, nil
	}
	sealed, err := sealedkv.New(e, []byte(appCfg.SealKey), appCfg.TabTTL)
	if err != nil {
		return nil, err
	}
	return sealed, nil
}
