package remote

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"komigrate/internal/classify"
	"komigrate/internal/config"
	"komigrate/internal/rewrite"
)

// Driver runs the rewrite engine over live knowledge objects. Every run
// writes an audit CSV of the objects it would change; writes happen in
// rate-limited batches and only outside dry-run mode.
type Driver struct {
	client *Client
	engine *rewrite.Engine
	cfg    config.RemoteConfig
	dryRun bool
	log    *zap.Logger

	sleep func(time.Duration)
}

func NewDriver(client *Client, engine *rewrite.Engine, cfg config.RemoteConfig, dryRun bool, log *zap.Logger) *Driver {
	return &Driver{
		client: client,
		engine: engine,
		cfg:    cfg,
		dryRun: dryRun,
		log:    log,
		sleep:  time.Sleep,
	}
}

type pending struct {
	ep      Endpoint
	obj     Object
	content string
}

// Run visits every endpoint, audits the objects that need rewriting, and
// applies the updates in batches. Any endpoint or update failure aborts
// the run immediately.
func (d *Driver) Run(ctx context.Context, auditDir string) error {
	auditPath := filepath.Join(auditDir,
		fmt.Sprintf("audit_objects_%s.csv", time.Now().UTC().Format("20060102_150405")))
	queue, err := d.audit(ctx, auditPath)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		d.log.Info("no live objects need rewriting")
		return nil
	}
	return d.apply(ctx, queue)
}

func (d *Driver) audit(ctx context.Context, auditPath string) ([]pending, error) {
	f, err := os.Create(auditPath)
	if err != nil {
		return nil, fmt.Errorf("creating audit file: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"endpoint", "id", "name", "original", "modified"}); err != nil {
		return nil, fmt.Errorf("writing audit header: %w", err)
	}

	dmp := diffmatchpatch.New()
	var queue []pending
	for _, ep := range Endpoints() {
		objs, err := d.client.List(ctx, ep)
		if err != nil {
			return nil, err
		}
		for _, obj := range objs {
			// System-owned objects stay with the system.
			if obj.Author == "nobody" {
				d.log.Debug("skipping system object",
					zap.String("endpoint", ep.Name), zap.String("object", obj.Name))
				continue
			}
			res := d.engine.Rewrite(obj.Content, classify.RoleSearch, ep.Name+": "+obj.Name)
			if res.Invalid || !res.Changed {
				continue
			}
			if err := w.Write([]string{ep.Name, obj.ID, obj.Name, obj.Content, res.Text}); err != nil {
				return nil, fmt.Errorf("writing audit row: %w", err)
			}
			diff := dmp.DiffPrettyText(dmp.DiffMain(obj.Content, res.Text, false))
			d.log.Info("object needs rewrite",
				zap.String("endpoint", ep.Name),
				zap.String("object", obj.Name),
				zap.String("diff", diff))
			if ep.AuditOnly {
				d.log.Warn("endpoint cannot be updated through this interface, change it in the UI",
					zap.String("endpoint", ep.Name), zap.String("object", obj.Name))
				continue
			}
			queue = append(queue, pending{ep: ep, obj: obj, content: res.Text})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing audit file: %w", err)
	}
	d.log.Info("audit written", zap.String("file", auditPath), zap.Int("queued", len(queue)))
	return queue, nil
}

func (d *Driver) apply(ctx context.Context, queue []pending) error {
	chunk := d.cfg.Chunk(d.dryRun)
	pause := d.cfg.Pause(d.dryRun)
	for i, p := range queue {
		if i > 0 && i%chunk == 0 {
			d.log.Info("batch complete, pausing", zap.Duration("pause", pause))
			d.sleep(pause)
		}
		if d.dryRun {
			d.log.Info("dry run: would update",
				zap.String("endpoint", p.ep.Name), zap.String("object", p.obj.Name))
			continue
		}
		if err := d.client.Update(ctx, p.ep, p.obj, p.content); err != nil {
			return err
		}
		d.log.Info("updated object",
			zap.String("endpoint", p.ep.Name), zap.String("object", p.obj.Name))
	}
	return nil
}
