// Package repository keeps the on-disk settings file and reloads it on change.
package repository

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const debounceDelay = 350 * time.Millisecond

// Change is a reload that touched at least one setting applied at runtime.
// The flags tell which of them differ from the previous file.
type Change struct {
	Settings        config.FileConfig
	WeightsChanged  bool
	LevelChanged    bool
	IntervalChanged bool
}

// ReloadFunc receives every Change produced by Reload.
type ReloadFunc func(ch Change)

// SettingsRepository owns the settings file. Only partition weights, the log
// level and the production interval are applied live; other changes are
// reported and take effect on restart.
type SettingsRepository struct {
	mu       sync.RWMutex
	path     string
	current  config.FileConfig
	onReload ReloadFunc
	watcher  *fsnotify.Watcher
}

// NewSettingsRepository creates a repository for path. onReload may be nil.
func NewSettingsRepository(path string, onReload ReloadFunc) *SettingsRepository {
	return &SettingsRepository{
		path:     path,
		current:  config.Default(),
		onReload: onReload,
	}
}

// Load reads the file and applies env overrides without notifying onReload.
func (r *SettingsRepository) Load() error {
	cfg, err := readSettings(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = cfg
	r.mu.Unlock()
	return nil
}

// Current returns the settings in effect.
func (r *SettingsRepository) Current() config.FileConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Path returns the settings file location.
func (r *SettingsRepository) Path() string {
	return r.path
}

// Reload rereads the file and notifies onReload when a live setting changed.
func (r *SettingsRepository) Reload() error {
	next, err := readSettings(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	if !clusterConfigEqual(prev.Cluster, next.Cluster) || prev.Log.Driver != next.Log.Driver ||
		prev.Demo.Topic != next.Demo.Topic || prev.Demo.Partitions != next.Demo.Partitions {
		utils.Logger.Warn("settings changed that require a restart", "path", r.path)
	}
	ch := diffLiveSettings(prev, next)
	if !ch.WeightsChanged && !ch.LevelChanged && !ch.IntervalChanged {
		return nil
	}
	utils.Logger.Info("settings reloaded", "path", r.path,
		"weights_changed", ch.WeightsChanged, "level_changed", ch.LevelChanged, "interval_changed", ch.IntervalChanged)
	if r.onReload != nil {
		r.onReload(ch)
	}
	return nil
}

// Watch starts reloading the file when it changes on disk.
func (r *SettingsRepository) Watch() error {
	abs, err := filepath.Abs(r.path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return err
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()

	go r.watch(w, abs)
	return nil
}

func (r *SettingsRepository) watch(w *fsnotify.Watcher, abs string) {
	reload := func() {
		// editors replace files through rename; wait for the new one to appear
		for range 10 {
			if _, err := os.Stat(abs); err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		utils.Logger.Debug("settings file changed", "path", abs)
		if err := r.Reload(); err != nil {
			utils.Logger.Error("failed to reload settings", "path", abs, "err", err)
		}
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounceDelay, reload)
			} else {
				timer.Reset(debounceDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			utils.Logger.Error("settings watcher error", "err", err)
		}
	}
}

// Close stops watching.
func (r *SettingsRepository) Close() error {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

func readSettings(path string) (config.FileConfig, error) {
	cfg, err := config.ReadConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func diffLiveSettings(prev, next config.FileConfig) Change {
	return Change{
		Settings:        next,
		WeightsChanged:  !slices.Equal(prev.Demo.PartitionWeights, next.Demo.PartitionWeights),
		LevelChanged:    prev.Log.Level != next.Log.Level,
		IntervalChanged: prev.Demo.IntervalMs != next.Demo.IntervalMs,
	}
}

func clusterConfigEqual(a, b config.ClusterConfig) bool {
	return equalBrokers(a.Brokers, b.Brokers) && a.ClientID == b.ClientID &&
		equalTLS(a.TLS, b.TLS) && equalSASL(a.SASL, b.SASL) && equalAWS(a.AWS, b.AWS)
}

// equalBrokers compares broker lists ignoring order.
func equalBrokers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

func equalTLS(a, b *config.TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalSASL(a, b *config.SASLConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalAWS(a, b *config.AWSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
