package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

// ensureProbed returns the cached endpoint family, probing on first use.
func (c *client) ensureProbed(ctx context.Context) (*family, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.probed {
		c.probeLocked(ctx)
	}
	if c.active == nil {
		return nil, c.probeErr
	}
	return c.active, nil
}

func (c *client) Status(ctx context.Context) models.BridgeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.probed {
		c.probeLocked(ctx)
	}
	return c.snapshotLocked()
}

func (c *client) Reprobe(ctx context.Context) models.BridgeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probeLocked(ctx)
	return c.snapshotLocked()
}

func (c *client) snapshotLocked() models.BridgeStatus {
	s := c.status
	s.Networks = append([]string(nil), c.status.Networks...)
	return s
}

// probeLocked lists accounts on each family in order and keeps the first
// that answers. Callers hold c.mu.
func (c *client) probeLocked(ctx context.Context) {
	c.probed = true
	c.active = nil
	c.probeErr = nil
	c.status = models.BridgeStatus{BaseURL: c.baseURL, ProbedAt: time.Now().UTC()}

	var errs []error
	for i := range families {
		fam := &families[i]
		doc, err := c.do(ctx, "GET", fam.Accounts, nil, nil)
		if err != nil {
			log.Debugw(ctx, "bridge family did not answer", "family", fam.Name, "error", err)
			errs = append(errs, err)
			continue
		}

		records, _ := extractRecords(doc)
		networks := make(map[string]struct{})
		for _, r := range records {
			n := detectNetwork(
				r.Get("network").String(),
				r.Get("accountID").String(),
				r.Get("platform").String(),
				r.Get("id").String(),
			)
			if n != models.NetworkUnknown {
				networks[n] = struct{}{}
			}
		}

		c.active = fam
		c.status.Connected = true
		c.status.Family = fam.Name
		c.status.Accounts = len(records)
		for n := range networks {
			c.status.Networks = append(c.status.Networks, n)
		}
		sort.Strings(c.status.Networks)
		log.Infow(ctx, "bridge connected", "family", fam.Name, "accounts", len(records), "networks", c.status.Networks)
		return
	}

	// the last error is the most specific one for the caller
	last := errors.Join(errs...)
	if len(errs) > 0 {
		last = errs[len(errs)-1]
	}
	c.probeErr = fmt.Errorf("%w: %w", ErrUnreachable, last)
	c.status.LastError = c.probeErr.Error()
	log.Warnw(ctx, "bridge unreachable", "base_url", c.baseURL, "error", c.probeErr)
}
