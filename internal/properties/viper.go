package properties

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Properties is a Store backed by a YAML file and environment variables.
// Environment variables take precedence over the file and are named after the
// key with dots replaced by underscores, e.g. INVERSE_CONFIG_LOGLEVEL for
// inverse.config.loglevel.
//
// Reads are safe for concurrent use; Reload swaps in a freshly read snapshot.
type Properties struct {
	mutex    sync.RWMutex
	v        *viper.Viper
	file     string
	logger   *slog.Logger
	onReload func(error)
}

// Option configures a Properties store.
type Option func(*Properties)

// WithLogger sets the logger used for load and reload messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Properties) {
		p.logger = logger
	}
}

// WithReloadHook registers fn to be called after every reload triggered by
// Watch. fn receives the reload error, or nil on success.
func WithReloadHook(fn func(error)) Option {
	return func(p *Properties) {
		p.onReload = fn
	}
}

// New loads the properties file. An empty file name or a file that does not
// exist gives a store that is served from the environment only.
func New(file string, opts ...Option) (*Properties, error) {
	p := &Properties{
		file:   file,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	v, err := p.read()
	if err != nil {
		return nil, err
	}
	p.v = v

	return p, nil
}

// File returns the path of the backing properties file.
func (p *Properties) File() string {
	return p.file
}

func (p *Properties) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if p.file == "" {
		return v, nil
	}

	v.SetConfigFile(p.file)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("properties file not found, using environment only",
				slog.String("file", p.file))
			return v, nil
		}
		return nil, fmt.Errorf("read properties %s: %w", p.file, err)
	}

	p.logger.Info("loaded properties", slog.String("file", v.ConfigFileUsed()))
	return v, nil
}

// Reload re-reads the properties file. On failure the previous values stay
// in effect.
func (p *Properties) Reload() error {
	v, err := p.read()
	if err != nil {
		return err
	}

	p.mutex.Lock()
	p.v = v
	p.mutex.Unlock()

	return nil
}

// Watch reloads the store whenever the properties file changes. It blocks
// until ctx is done. The parent directory is watched so that editors that
// replace the file on save are picked up.
func (p *Properties) Watch(ctx context.Context) error {
	if p.file == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(p.file)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	p.logger.Info("watching properties", slog.String("file", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			err := p.Reload()
			if err != nil {
				p.logger.Error("failed to reload properties",
					slog.String("file", target),
					slog.String("error", err.Error()))
			} else {
				p.logger.Info("reloaded properties", slog.String("file", target))
			}
			if p.onReload != nil {
				p.onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("properties watcher error", slog.String("error", err.Error()))
		}
	}
}

func (p *Properties) lookup(key string) (any, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if !p.v.IsSet(key) {
		return nil, false
	}
	return p.v.Get(key), true
}

func (p *Properties) String(key, def string) string {
	raw, ok := p.lookup(key)
	if !ok {
		return def
	}
	return toString(raw, def)
}

func (p *Properties) Bool(key string, def bool) bool {
	raw, ok := p.lookup(key)
	if !ok {
		return def
	}
	return toBool(raw, def)
}

func (p *Properties) Int(key string, def int) int {
	raw, ok := p.lookup(key)
	if !ok {
		return def
	}
	return toInt(raw, def)
}
