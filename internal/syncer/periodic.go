package syncer

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ruteroapp/fieldsync/internal/logging"
)

// PeriodicTrigger requests a sync pass on a cron schedule. It is a
// safety net for missed reachability edges and is disabled by default;
// the trigger itself is still a no-op while a pass is in flight.
type PeriodicTrigger struct {
	syncer *Syncer
	spec   string
	cron   *cron.Cron
}

// NewPeriodicTrigger creates a trigger with a cron spec such as
// "@every 5m".
func NewPeriodicTrigger(s *Syncer, spec string) *PeriodicTrigger {
	return &PeriodicTrigger{
		syncer: s,
		spec:   spec,
		cron:   cron.New(),
	}
}

// Start schedules the trigger.
func (p *PeriodicTrigger) Start() error {
	if _, err := p.cron.AddFunc(p.spec, func() {
		logging.Log.Debug("periodic sync trigger")
		p.syncer.SyncNow()
	}); err != nil {
		return err
	}

	p.cron.Start()
	logging.Log.Info("periodic sync trigger started", zap.String("spec", p.spec))
	return nil
}

// Stop cancels the schedule.
func (p *PeriodicTrigger) Stop() {
	p.cron.Stop()
}
