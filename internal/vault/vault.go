// internal/vault/vault.go
//
// Vault client wrapper for z2p.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK for KV-v2 reads with per-key caching.
//   - Implements config.SecretResolver, so any configuration value of the
//     form `vault:<mount>/<path>#<key>` is swapped for the stored secret
//     before decode.
//   - New also starts background token renewal for long-running servers.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, log)                 // during boot.
//  2. loader := &config.Loader{Resolver: cli, …}       // secrets at load.
//  3. pw, err := cli.GetKV(ctx, path, key, ttl)        // anywhere else.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.  No em-dash.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// EnvAddr selects the Vault server.  When unset, callers should skip
// Vault entirely rather than dial the SDK default.
const EnvAddr = "VAULT_ADDR"

// ResolveTTL is the cache lifetime for values fetched through Resolve.
const ResolveTTL = 5 * time.Minute

// ErrBadReference reports a secret reference that is not `path#key`.
var ErrBadReference = errors.New("vault reference must be <mount>/<path>#<key>")

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// Enabled reports whether VAULT_ADDR is set.
func Enabled() bool { return os.Getenv(EnvAddr) != "" }

// New constructs a Vault client from VAULT_* environment variables and
// starts a background token-renewal loop bound to ctx.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := NewFromAPI(apiCli, log)
	go c.renewLoop(ctx)
	return c, nil
}

// NewFromAPI wraps an existing SDK client without token renewal.
func NewFromAPI(api *vault.Client, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		api:   api,
		log:   log.Named("vault"),
		cache: make(map[string]cached),
	}
}

// Resolve implements config.SecretResolver.  ref is `<mount>/<path>#<key>`
// with the `vault:` prefix already removed.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, ok := strings.Cut(ref, "#")
	if !ok || secretPath == "" || key == "" || !strings.Contains(secretPath, "/") {
		return "", fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return c.GetKV(ctx, secretPath, key, ResolveTTL)
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.  Subsequent callers within the TTL receive the
// cached copy.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.log.Debugw("secret fetched", "path", secretPath, "key", key)

	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("token renew self failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("token is not renewable, sleeping", "for", time.Hour)
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("lifetime watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()
		c.watch(ctx, watcher)
		backoff(ctx, 15*time.Second)
	}
}

// watch drains watcher until it stops or ctx ends.
func (c *Client) watch(ctx context.Context, watcher *vault.LifetimeWatcher) {
	defer watcher.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.DoneCh():
			if err != nil {
				c.log.Warnw("token renewal stopped", "err", err)
			}
			return
		case ev := <-watcher.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Infow("token renewed", "ttl_seconds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
